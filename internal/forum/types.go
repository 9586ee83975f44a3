// AngelaMos | 2026
// types.go

package forum

import (
	"time"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

const (
	TierStandard = "standard"
	TierElevated = "elevated"
)

const (
	TargetPost    = "post"
	TargetComment = "comment"
)

const (
	ReportOpen      = "open"
	ReportActioned  = "actioned"
	ReportDismissed = "dismissed"
)

// Reason codes accepted by the backend when filing a report.
const (
	ReasonSpam           = "Spam"
	ReasonHarassment     = "Harassment"
	ReasonHateSpeech     = "HateSpeech"
	ReasonMisinformation = "Misinformation"
	ReasonOther          = "Other"
)

// Principal is the identity behind the current token. It is owned by the
// token source; holders treat it as read-only.
type Principal struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	Email       string `json:"email"`
}

type RoleRecord struct {
	PrincipalID string `json:"principalId"`
	Role        string `json:"role"`
	Tier        string `json:"tier"`
}

func (r RoleRecord) IsAdmin() bool {
	return r.Role == RoleAdmin
}

func (r RoleRecord) IsElevated() bool {
	return r.Tier == TierElevated
}

type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	Title        string    `json:"title"`
	Body         string    `json:"body"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"createdAt"`
	Upvoters     []string  `json:"upvoters"`
	Downvoters   []string  `json:"downvoters"`
	CommentCount int       `json:"commentCount"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	AuthorID  string    `json:"authorId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Report struct {
	ID         string     `json:"id"`
	TargetType string     `json:"targetType"`
	TargetID   string     `json:"targetId"`
	ReporterID string     `json:"reporterId"`
	ReasonCode string     `json:"reasonCode"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy *string    `json:"resolvedBy,omitempty"`
}

func (r *Report) IsOpen() bool {
	return r.Status == ReportOpen
}

func ValidTargetType(t string) bool {
	return t == TargetPost || t == TargetComment
}

func ValidRole(role string) bool {
	return role == RoleMember || role == RoleAdmin
}

func ValidTier(tier string) bool {
	return tier == TierStandard || tier == TierElevated
}
