package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	igclient "github.com/gramsight/gramsight-backend/internal/clients/instagram"
	"github.com/gramsight/gramsight-backend/internal/jobs"
	"github.com/gramsight/gramsight-backend/internal/logger"
	"github.com/gramsight/gramsight-backend/internal/media"
	"github.com/gramsight/gramsight-backend/internal/repos"
	"github.com/gramsight/gramsight-backend/internal/storage"
	"github.com/gramsight/gramsight-backend/internal/types"
)

// Job type identifiers for account work.
const (
	JobAccountSyncProfile        = "account.sync_profile"
	JobAccountSyncPosts          = "account.sync_posts"
	JobAccountSyncStories        = "account.sync_stories"
	JobAccountSyncProfilePicture = "account.sync_profile_picture"
	JobAccountGenerateBlur       = "account.generate_blur"
)

// AccountService owns tracked-account lifecycle: creation, profile/post/story
// syncs against the provider, and profile picture caching.
type AccountService interface {
	Create(ctx context.Context, username string, autoUpdateProfile, autoUpdateStories bool) (*types.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Account, error)
	List(ctx context.Context, limit, offset int) ([]*types.Account, error)
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]*types.AccountHistory, error)
	UpdateLogs(ctx context.Context, accountID uuid.UUID, limit int) ([]*types.StoryUpdateLog, error)
	EnqueueRefresh(ctx context.Context, accountID uuid.UUID, jobType string) (uuid.UUID, error)

	SyncProfile(ctx context.Context, accountID uuid.UUID) error
	SyncProfilePicture(ctx context.Context, accountID uuid.UUID) (bool, error)
	GenerateProfileBlur(ctx context.Context, accountID uuid.UUID) error
	SyncPosts(ctx context.Context, accountID uuid.UUID) (int, error)
	SyncStories(ctx context.Context, accountID uuid.UUID) (int, error)
}

type accountService struct {
	db            *gorm.DB
	accountRepo   repos.AccountRepo
	historyRepo   repos.AccountHistoryRepo
	updateLogRepo repos.StoryUpdateLogRepo
	postRepo      repos.PostRepo
	storyRepo     repos.StoryRepo
	ig            igclient.Client
	fetcher       *media.Fetcher
	store         storage.BlobStore
	enqueuer      jobs.Enqueuer
	log           *logger.Logger
}

func NewAccountService(
	db *gorm.DB,
	accountRepo repos.AccountRepo,
	historyRepo repos.AccountHistoryRepo,
	updateLogRepo repos.StoryUpdateLogRepo,
	postRepo repos.PostRepo,
	storyRepo repos.StoryRepo,
	ig igclient.Client,
	fetcher *media.Fetcher,
	store storage.BlobStore,
	enqueuer jobs.Enqueuer,
	baseLog *logger.Logger,
) AccountService {
	return &accountService{
		db:            db,
		accountRepo:   accountRepo,
		historyRepo:   historyRepo,
		updateLogRepo: updateLogRepo,
		postRepo:      postRepo,
		storyRepo:     storyRepo,
		ig:            ig,
		fetcher:       fetcher,
		store:         store,
		enqueuer:      enqueuer,
		log:           baseLog.With("service", "AccountService"),
	}
}

func (s *accountService) Create(ctx context.Context, username string, autoUpdateProfile, autoUpdateStories bool) (*types.Account, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	existing, err := s.accountRepo.GetByUsername(ctx, nil, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("account %q already exists", username)
	}

	account := &types.Account{
		Username:               username,
		AllowAutoUpdateProfile: autoUpdateProfile,
		AllowAutoUpdateStories: autoUpdateStories,
	}
	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, txErr := s.accountRepo.Create(ctx, tx, []*types.Account{account}); txErr != nil {
			return txErr
		}
		_, txErr := s.enqueuer.Enqueue(ctx, tx, JobAccountSyncProfile, account.ID.String(), nil)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *accountService) GetByID(ctx context.Context, id uuid.UUID) (*types.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, &NotFoundError{Msg: fmt.Sprintf("account %s not found", id)}
	}
	return account, nil
}

func (s *accountService) List(ctx context.Context, limit, offset int) ([]*types.Account, error) {
	return s.accountRepo.List(ctx, nil, limit, offset)
}

func (s *accountService) History(ctx context.Context, accountID uuid.UUID, limit int) ([]*types.AccountHistory, error) {
	return s.historyRepo.ListByAccount(ctx, nil, accountID, limit)
}

func (s *accountService) UpdateLogs(ctx context.Context, accountID uuid.UUID, limit int) ([]*types.StoryUpdateLog, error) {
	return s.updateLogRepo.ListByAccount(ctx, nil, accountID, limit)
}

func (s *accountService) EnqueueRefresh(ctx context.Context, accountID uuid.UUID, jobType string) (uuid.UUID, error) {
	switch jobType {
	case JobAccountSyncProfile, JobAccountSyncPosts, JobAccountSyncStories:
	default:
		return uuid.Nil, fmt.Errorf("unsupported refresh operation: %s", jobType)
	}
	if _, err := s.GetByID(ctx, accountID); err != nil {
		return uuid.Nil, err
	}
	return s.enqueuer.Enqueue(ctx, nil, jobType, accountID.String(), nil)
}

// SyncProfile refreshes profile fields from the provider, appends a history
// snapshot, and chains a profile picture sync when the remote URL moved.
func (s *accountService) SyncProfile(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	profile, err := s.ig.FetchProfileByUsername(ctx, account.Username)
	if err != nil {
		var apiErr *igclient.APIError
		if account.InstagramID != nil && *account.InstagramID != "" && errors.As(err, &apiErr) {
			s.log.Warn("Username lookup failed, falling back to id lookup",
				"username", account.Username, "error", err)
			profile, err = s.ig.FetchProfileByID(ctx, *account.InstagramID)
		}
		if err != nil {
			return err
		}
	}

	now := time.Now()
	pictureChanged := profile.ProfilePictureURL != "" && profile.ProfilePictureURL != account.OriginalProfilePictureURL

	updates := map[string]interface{}{
		"full_name":                    profile.FullName,
		"biography":                    profile.Biography,
		"is_private":                   profile.IsPrivate,
		"is_verified":                  profile.IsVerified,
		"media_count":                  profile.MediaCount,
		"follower_count":               profile.FollowerCount,
		"following_count":              profile.FollowingCount,
		"original_profile_picture_url": profile.ProfilePictureURL,
		"raw_api_data":                 datatypes.JSON(profile.Raw),
		"api_updated_at":               now,
	}
	if profile.InstagramID != "" {
		updates["instagram_id"] = profile.InstagramID
	}

	return runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if txErr := s.accountRepo.UpdateFields(ctx, tx, account.ID, updates); txErr != nil {
			return txErr
		}
		fresh, txErr := s.accountRepo.GetByID(ctx, tx, account.ID)
		if txErr != nil {
			return txErr
		}
		snapshot, txErr := json.Marshal(fresh)
		if txErr != nil {
			return txErr
		}
		_, txErr = s.historyRepo.Create(ctx, tx, []*types.AccountHistory{{
			AccountID: account.ID,
			Snapshot:  datatypes.JSON(snapshot),
		}})
		if txErr != nil {
			return txErr
		}
		if pictureChanged || (profile.ProfilePictureURL != "" && fresh.ProfilePictureKey == "") {
			if _, txErr = s.enqueuer.Enqueue(ctx, tx, JobAccountSyncProfilePicture, account.ID.String(), nil); txErr != nil {
				return txErr
			}
		}
		return nil
	})
}

// SyncProfilePicture downloads the remote profile picture and stores it
// under a fresh key when its hash changed. Returns true when unchanged.
func (s *accountService) SyncProfilePicture(ctx context.Context, accountID uuid.UUID) (bool, error) {
	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return false, err
	}
	if account.OriginalProfilePictureURL == "" {
		return false, &PreconditionError{Msg: "Profile picture URL is not available"}
	}

	var existing io.ReadCloser
	if account.ProfilePictureKey != "" {
		if f, openErr := s.store.Open(account.ProfilePictureKey); openErr == nil {
			existing = f
		}
	}
	result, err := s.fetcher.SyncBinary(ctx, account.OriginalProfilePictureURL, existing)
	if err != nil {
		return false, err
	}
	if result.Unchanged {
		return true, nil
	}

	key := s.store.BuildKey(result.Extension, "users", account.Username)
	if err := s.store.Write(key, result.Data); err != nil {
		return false, err
	}
	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		txErr := s.accountRepo.UpdateFields(ctx, tx, account.ID, map[string]interface{}{
			"profile_picture_key":  key,
			"profile_picture_hash": result.Hash,
			"profile_picture_blur": "",
		})
		if txErr != nil {
			return txErr
		}
		_, txErr = s.enqueuer.Enqueue(ctx, tx, JobAccountGenerateBlur, account.ID.String(), nil)
		return txErr
	})
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *accountService) GenerateProfileBlur(ctx context.Context, accountID uuid.UUID) error {
	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.ProfilePictureKey == "" {
		return &PreconditionError{Msg: "Profile picture file does not exist"}
	}
	f, err := s.store.Open(account.ProfilePictureKey)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	blur, err := media.BlurDataURL(data)
	if err != nil {
		return err
	}
	return s.accountRepo.UpdateFields(ctx, nil, account.ID, map[string]interface{}{
		"profile_picture_blur": blur,
	})
}

// SyncPosts pulls the account's feed and upserts posts. Each post gets its
// media materialization and thumbnail sync chained in the same transaction.
func (s *accountService) SyncPosts(ctx context.Context, accountID uuid.UUID) (int, error) {
	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}
	if account.InstagramID == nil || *account.InstagramID == "" {
		return 0, &PreconditionError{Msg: fmt.Sprintf("Account %s has no Instagram ID", account.Username)}
	}

	items, err := s.ig.FetchPosts(ctx, *account.InstagramID)
	if err != nil {
		return 0, err
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		for _, item := range items {
			if item.ID == "" {
				continue
			}
			post := &types.Post{
				ID:           item.ID,
				AccountID:    account.ID,
				Caption:      item.Caption,
				ThumbnailURL: item.DisplayURI,
				Variant:      variantFor(item),
				RawData:      datatypes.JSON(item.Raw),
			}
			if !item.TakenAt.IsZero() {
				takenAt := item.TakenAt
				post.PostCreatedAt = &takenAt
			}
			if _, txErr := s.postRepo.Upsert(ctx, tx, []*types.Post{post}); txErr != nil {
				return txErr
			}
			if _, txErr := s.enqueuer.Enqueue(ctx, tx, JobPostProcessMedia, post.ID, nil); txErr != nil {
				return txErr
			}
			if _, txErr := s.enqueuer.Enqueue(ctx, tx, JobPostSyncThumbnail, post.ID, nil); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func variantFor(item *igclient.PostItem) string {
	switch item.MediaType {
	case igclient.MediaTypeCarousel:
		return types.PostVariantCarousel
	case igclient.MediaTypeVideo:
		return types.PostVariantVideo
	default:
		return types.PostVariantNormal
	}
}

// SyncStories pulls current stories under a StoryUpdateLog audit row. The
// log always leaves IN_PROGRESS with exactly one terminal transition.
func (s *accountService) SyncStories(ctx context.Context, accountID uuid.UUID) (int, error) {
	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return 0, err
	}

	logRows, err := s.updateLogRepo.Create(ctx, nil, []*types.StoryUpdateLog{{
		AccountID: account.ID,
		Status:    types.UpdateLogInProgress,
		Message:   "Started story update from API",
	}})
	if err != nil {
		return 0, err
	}
	logEntry := logRows[0]

	items, err := s.ig.FetchStories(ctx, account.Username)
	if err != nil {
		s.failLog(ctx, logEntry.ID, err.Error())
		return 0, err
	}

	err = runInTx(ctx, s.db, func(tx *gorm.DB) error {
		for _, item := range items {
			if item.ID == "" {
				continue
			}
			mediaURL := item.VideoURL
			if mediaURL == "" {
				mediaURL = item.ThumbnailURL
			}
			story := &types.Story{
				ID:           item.ID,
				AccountID:    account.ID,
				ThumbnailURL: item.ThumbnailURL,
				MediaURL:     mediaURL,
				RawAPIData:   datatypes.JSON(item.Raw),
			}
			if !item.TakenAt.IsZero() {
				takenAt := item.TakenAt
				story.StoryCreatedAt = &takenAt
			}
			if _, txErr := s.storyRepo.Upsert(ctx, tx, []*types.Story{story}); txErr != nil {
				return txErr
			}
			if _, txErr := s.enqueuer.Enqueue(ctx, tx, JobStorySyncMedia, story.ID, nil); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		s.failLog(ctx, logEntry.ID, err.Error())
		return 0, err
	}

	updErr := s.updateLogRepo.UpdateFields(ctx, nil, logEntry.ID, map[string]interface{}{
		"status":  types.UpdateLogCompleted,
		"message": fmt.Sprintf("Successfully updated %d stories", len(items)),
	})
	if updErr != nil {
		s.log.Warn("Failed to complete story update log", "log_id", logEntry.ID, "error", updErr)
	}
	return len(items), nil
}

func (s *accountService) failLog(ctx context.Context, logID uuid.UUID, message string) {
	err := s.updateLogRepo.UpdateFields(ctx, nil, logID, map[string]interface{}{
		"status":  types.UpdateLogFailed,
		"message": message,
	})
	if err != nil {
		s.log.Warn("Failed to mark story update log failed", "log_id", logID, "error", err)
	}
}
