package services

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/gramsight/gramsight-backend/internal/types"
)

type fakePostRepo struct {
	posts   map[string]*types.Post
	updates []map[string]interface{}
}

func (f *fakePostRepo) Upsert(_ context.Context, _ *gorm.DB, posts []*types.Post) ([]*types.Post, error) {
	return posts, nil
}

func (f *fakePostRepo) GetByID(_ context.Context, _ *gorm.DB, id string) (*types.Post, error) {
	return f.posts[id], nil
}

func (f *fakePostRepo) List(_ context.Context, _ *gorm.DB, _ *uuid.UUID, _, _ int) ([]*types.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) ListMissingBlur(_ context.Context, _ *gorm.DB, _ int) ([]*types.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) ListMissingInsight(_ context.Context, _ *gorm.DB, _ int) ([]*types.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) ListMissingEmbedding(_ context.Context, _ *gorm.DB, _ int) ([]*types.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) ListWithEmbedding(_ context.Context, _ *gorm.DB, _ int) ([]*types.Post, error) {
	return nil, nil
}

func (f *fakePostRepo) UpdateFields(_ context.Context, _ *gorm.DB, _ string, updates map[string]interface{}) error {
	f.updates = append(f.updates, updates)
	return nil
}

// fakePostMediaRepo mirrors the (post_id, reference) uniqueness of the real
// table: inserting an existing pair leaves the stored row untouched.
type fakePostMediaRepo struct {
	rows   map[string]*types.PostMedia
	nextID uint
}

func newFakePostMediaRepo() *fakePostMediaRepo {
	return &fakePostMediaRepo{rows: map[string]*types.PostMedia{}}
}

func mediaKey(postID, reference string) string { return postID + "|" + reference }

func (f *fakePostMediaRepo) UpsertByReference(_ context.Context, _ *gorm.DB, rows []*types.PostMedia) ([]*types.PostMedia, error) {
	for _, row := range rows {
		key := mediaKey(row.PostID, row.Reference)
		if _, exists := f.rows[key]; exists {
			continue
		}
		f.nextID++
		row.ID = f.nextID
		stored := *row
		f.rows[key] = &stored
	}
	return rows, nil
}

func (f *fakePostMediaRepo) GetByID(_ context.Context, _ *gorm.DB, id uint) (*types.PostMedia, error) {
	for _, row := range f.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakePostMediaRepo) ListByPost(_ context.Context, _ *gorm.DB, postID string) ([]*types.PostMedia, error) {
	var out []*types.PostMedia
	for _, row := range f.rows {
		if row.PostID == postID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePostMediaRepo) ListMissingBlur(_ context.Context, _ *gorm.DB, _ int) ([]*types.PostMedia, error) {
	return nil, nil
}

func (f *fakePostMediaRepo) UpdateFields(_ context.Context, _ *gorm.DB, _ uint, _ map[string]interface{}) error {
	return nil
}

type recordingEnqueuer struct {
	jobTypes []string
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, _ *gorm.DB, jobType, _ string, _ map[string]interface{}) (uuid.UUID, error) {
	e.jobTypes = append(e.jobTypes, jobType)
	return uuid.New(), nil
}

func TestProcessByType_RepeatedRunsDoNotDuplicateMedia(t *testing.T) {
	raw := `{
		"media_type": 8,
		"carousel_media": [
			{"strong_id__": "item-1", "display_uri": "https://cdn.example/1.jpg"},
			{"strong_id__": "item-2", "display_uri": "https://cdn.example/2.jpg"}
		]
	}`
	post := &types.Post{ID: "p1", AccountID: uuid.New(), RawData: datatypes.JSON(raw)}
	postRepo := &fakePostRepo{posts: map[string]*types.Post{post.ID: post}}
	mediaRepo := newFakePostMediaRepo()
	enq := &recordingEnqueuer{}
	svc := NewPostService(nil, postRepo, mediaRepo, nil, nil, enq, testLogger(t))

	count, err := svc.ProcessByType(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 materialized rows, got %d", count)
	}

	first, _ := mediaRepo.ListByPost(context.Background(), nil, post.ID)
	if len(first) != 2 {
		t.Fatalf("expected 2 stored rows, got %d", len(first))
	}
	idsBefore := map[string]uint{}
	for _, row := range first {
		idsBefore[row.Reference] = row.ID
	}

	if _, err := svc.ProcessByType(context.Background(), post.ID); err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	second, _ := mediaRepo.ListByPost(context.Background(), nil, post.ID)
	if len(second) != 2 {
		t.Fatalf("re-processing must not duplicate rows, got %d", len(second))
	}
	for _, row := range second {
		if idsBefore[row.Reference] != row.ID {
			t.Errorf("row for reference %s was recreated: id %d -> %d", row.Reference, idsBefore[row.Reference], row.ID)
		}
	}
	seen := map[string]bool{}
	for _, row := range second {
		if seen[row.Reference] {
			t.Errorf("duplicate reference %s", row.Reference)
		}
		seen[row.Reference] = true
	}
}

func TestProcessByType_SingleRowVariants(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		variant string
	}{
		{"video", `{"media_type": 2, "display_uri": "https://cdn.example/t.jpg", "video_url": "https://cdn.example/v.mp4"}`, types.PostVariantVideo},
		{"normal", `{"media_type": 1, "display_uri": "https://cdn.example/t.jpg"}`, types.PostVariantNormal},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			postID := fmt.Sprintf("p%d", i)
			post := &types.Post{ID: postID, AccountID: uuid.New(), RawData: datatypes.JSON(tc.raw)}
			postRepo := &fakePostRepo{posts: map[string]*types.Post{postID: post}}
			mediaRepo := newFakePostMediaRepo()
			svc := NewPostService(nil, postRepo, mediaRepo, nil, nil, &recordingEnqueuer{}, testLogger(t))

			for run := 0; run < 2; run++ {
				count, err := svc.ProcessByType(context.Background(), postID)
				if err != nil {
					t.Fatalf("run %d: unexpected error: %v", run, err)
				}
				if count != 1 {
					t.Fatalf("run %d: expected 1 row, got %d", run, count)
				}
			}
			rows, _ := mediaRepo.ListByPost(context.Background(), nil, postID)
			if len(rows) != 1 {
				t.Fatalf("expected exactly 1 stored row, got %d", len(rows))
			}
			if rows[0].Reference != postID {
				t.Errorf("expected the post id as reference, got %s", rows[0].Reference)
			}
			if len(postRepo.updates) == 0 || postRepo.updates[0]["variant"] != tc.variant {
				t.Errorf("expected variant %s recorded, got %+v", tc.variant, postRepo.updates)
			}
		})
	}
}
