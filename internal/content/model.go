package content

import (
	"time"

	"github.com/google/uuid"
)

// Generation is one persisted generation record. UserID is nil for
// anonymous sessions; SubjectKey always identifies the metered identity.
type Generation struct {
	ID           uuid.UUID  `json:"id"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	SubjectKey   string     `json:"-"`
	ProductName  string     `json:"product_name"`
	ContentType  string     `json:"content_type"`
	Tone         string     `json:"tone"`
	Text         string     `json:"text"`
	Model        string     `json:"model"`
	FinishReason string     `json:"finish_reason"`
	TokensUsed   int        `json:"tokens_used"`
	CreatedAt    time.Time  `json:"created_at"`
}

// GenerateRequest is the copy brief supplied by the caller.
type GenerateRequest struct {
	ProductName    string   `json:"product_name" validate:"required,min=1,max=200"`
	KeyFeatures    []string `json:"key_features" validate:"required,min=1,max=10,dive,min=1,max=300"`
	TargetAudience string   `json:"target_audience" validate:"required,min=1,max=300"`
	Tone           string   `json:"tone" validate:"required,oneof=professional casual playful bold luxurious"`
	ContentType    string   `json:"content_type" validate:"required,oneof=product_description social_post email_campaign landing_page ad_copy"`
}
