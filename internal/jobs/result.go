package jobs

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Result is the uniform envelope every background task returns. Failures are
// carried in the envelope; handlers never panic past their own boundary.
type Result struct {
	Success  bool
	Error    string
	Message  string
	Attempts int
	Extra    map[string]interface{}
}

func Ok(message string) Result {
	return Result{Success: true, Message: message}
}

func Fail(errMsg string) Result {
	return Result{Success: false, Error: errMsg}
}

func (r Result) With(key string, value interface{}) Result {
	if r.Extra == nil {
		r.Extra = map[string]interface{}{}
	}
	r.Extra[key] = value
	return r
}

// ToJSON flattens the envelope for persistence on the job row.
func (r Result) ToJSON() datatypes.JSON {
	out := map[string]interface{}{"success": r.Success}
	if r.Error != "" {
		out["error"] = r.Error
	}
	if r.Message != "" {
		out["message"] = r.Message
	}
	if r.Attempts > 0 {
		out["attempts"] = r.Attempts
	}
	for k, v := range r.Extra {
		out[k] = v
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return datatypes.JSON(`{"success":false,"error":"result not serializable"}`)
	}
	return datatypes.JSON(raw)
}
