// Package models holds the persistent entities and shared domain types.
package models

import (
	"time"

	"github.com/lib/pq"
)

// TokenPlaceholder marks where the extracted click token is substituted
// into a postback URL template.
const TokenPlaceholder = "$clickid"

// Mode is the single active conversational state of a user. It decides how
// the next free-text message from that user is interpreted.
type Mode string

const (
	ModeNone             Mode = "none"
	ModeAwaitHelpMessage Mode = "awaiting_help_message"
	ModeAwaitBroadcast   Mode = "awaiting_broadcast_text"
	ModeAwaitBanTarget   Mode = "awaiting_ban_target"
	ModeAwaitUnbanTarget Mode = "awaiting_unban_target"
	ModeAwaitAdminReply  Mode = "awaiting_admin_reply"
	ModeAwaitOfferCreate Mode = "awaiting_offer_create"
	ModeAwaitOfferEdit   Mode = "awaiting_offer_edit"
	ModeAwaitOfferDelete Mode = "awaiting_offer_delete_target"
	ModeAwaitOfferSubmit Mode = "awaiting_offer_submission"
)

var validModes = map[Mode]struct{}{
	ModeNone:             {},
	ModeAwaitHelpMessage: {},
	ModeAwaitBroadcast:   {},
	ModeAwaitBanTarget:   {},
	ModeAwaitUnbanTarget: {},
	ModeAwaitAdminReply:  {},
	ModeAwaitOfferCreate: {},
	ModeAwaitOfferEdit:   {},
	ModeAwaitOfferDelete: {},
	ModeAwaitOfferSubmit: {},
}

// Valid reports whether m is a member of the closed mode enum.
func (m Mode) Valid() bool {
	_, ok := validModes[m]
	return ok
}

// User is created on first contact and never physically deleted.
// Mode and Context are owned by the sessions service.
type User struct {
	ID          int64       `db:"id"`
	DisplayName string      `db:"display_name"`
	Username    string      `db:"username"`
	Mode        Mode        `db:"current_mode"`
	Context     ModeContext `db:"mode_context"`
	CreatedAt   time.Time   `db:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"`
}

// ModeContext carries transient per-mode state, e.g. the offer an action
// targets or the user an admin reply is addressed to.
type ModeContext struct {
	OfferID     int64 `json:"offer_id,omitempty"`
	TargetUser  int64 `json:"target_user,omitempty"`
	HelpRequest int64 `json:"help_request,omitempty"`
}

// Empty reports whether the context carries no values.
func (c ModeContext) Empty() bool {
	return c == ModeContext{}
}

// BanRecord existence overrides all other user state: banned users get no
// responses at all.
type BanRecord struct {
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Offer is an admin-managed configuration entity describing one postback
// sequence. Templates and Delays are parallel lists of equal length, 1..5.
type Offer struct {
	ID              int64          `db:"id"`
	Name            string         `db:"name"`
	LinkPattern     string         `db:"link_pattern"`
	Templates       pq.StringArray `db:"postback_templates"`
	Delays          pq.Int64Array  `db:"postback_delays"`
	Enabled         bool           `db:"enabled"`
	SubmissionCount int64          `db:"submission_count"`
	SuccessCount    int64          `db:"success_count"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

// Steps returns the number of postback steps the offer defines.
func (o *Offer) Steps() int { return len(o.Templates) }

// FailReason classifies why a single postback step failed.
type FailReason string

const (
	FailNone       FailReason = ""
	FailTimeout    FailReason = "timeout"
	FailConnection FailReason = "connection_error"
	FailOther      FailReason = "other"
)

// StepResult records one outbound call of an orchestration run.
type StepResult struct {
	Index      int           `json:"index"`
	URL        string        `json:"url"`
	HTTPStatus int           `json:"http_status,omitempty"`
	Body       string        `json:"body,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ms"`
	Success    bool          `json:"success"`
	Reason     FailReason    `json:"reason,omitempty"`
}

// Submission is the immutable record of one completed orchestration run.
// AllSuccess is the logical AND of all step successes. PublicID is the
// externally safe identifier shown to users and in logs.
type Submission struct {
	ID         int64         `db:"id"`
	PublicID   string        `db:"public_id"`
	UserID     int64         `db:"user_id"`
	OfferID    int64         `db:"offer_id"`
	RawURL     string        `db:"raw_url"`
	Token      string        `db:"extracted_token"`
	Steps      StepResults   `db:"steps"`
	AllSuccess bool          `db:"all_success"`
	Elapsed    time.Duration `db:"-"`
	ElapsedMS  int64         `db:"elapsed_ms"`
	CreatedAt  time.Time     `db:"created_at"`
}

// HelpStatus is the resolution state of a help request.
type HelpStatus string

const (
	HelpPending  HelpStatus = "pending"
	HelpResolved HelpStatus = "resolved"
)

// HelpRequest is created by an end user and mutated exactly once by an
// admin reply.
type HelpRequest struct {
	ID        int64      `db:"id"`
	UserID    int64      `db:"user_id"`
	Message   string     `db:"message"`
	Status    HelpStatus `db:"status"`
	Reply     string     `db:"reply"`
	RepliedAt *time.Time `db:"replied_at"`
	CreatedAt time.Time  `db:"created_at"`
}
