package domain

import (
	"time"

	"ai-interviewer/internal/analysis"
)

type SessionStatus string

const (
	StatusInProgress SessionStatus = "in_progress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
	StatusCancelled  SessionStatus = "cancelled"
)

// Terminal reports whether a session in this status accepts no further
// mutation.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusAbandoned || s == StatusCancelled
}

type SessionMode string

const (
	ModeDemo SessionMode = "demo"
	ModeFull SessionMode = "full"
)

// Roles and experience levels the interview supports.
const (
	RoleDesigner = "designer"
	RoleProduct  = "product"
)

var RoleNames = map[string]string{
	RoleDesigner: "Product Designer",
	RoleProduct:  "Product Manager",
}

const (
	LevelJunior = "junior"
	LevelMiddle = "middle"
	LevelSenior = "senior"
	LevelLead   = "lead"
)

var LevelNames = map[string]string{
	LevelJunior: "Junior (0-2 years)",
	LevelMiddle: "Middle (2-5 years)",
	LevelSenior: "Senior (5-8 years)",
	LevelLead:   "Lead (8+ years)",
}

// User is a stable identity keyed by the external channel id.
type User struct {
	ID         int64
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	CreatedAt  time.Time
}

// Balance meters diagnostic access. DemoUsed is a one-way latch and
// CreditBalance only decreases through the atomic consume path.
type Balance struct {
	UserID         int64
	DemoUsed       bool
	CreditBalance  int
	TotalPurchased int
	TotalUsed      int
	UpdatedAt      time.Time
}

// QAPair is one issued question with its confirmed answer.
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Session is one interview attempt. AnalysisHistory always holds exactly
// CurrentQuestion-1 entries at every persisted checkpoint.
type Session struct {
	ID              int64
	UserID          int64
	Role            string
	Experience      string
	Mode            SessionMode
	Status          SessionStatus
	CurrentQuestion int
	Conversation    []QAPair
	Analyses        []analysis.Analysis
	Scores          *analysis.Calibration
	Report          string
	StartedAt       time.Time
	CompletedAt     *time.Time
}

// QuestionCount returns the fixed interview length for the session's mode.
func (s *Session) QuestionCount(demo, full int) int {
	if s.Mode == ModeDemo {
		return demo
	}
	return full
}

// Answer is the append-only persisted record of one confirmed answer.
type Answer struct {
	ID           int64
	SessionID    int64
	QuestionNum  int
	QuestionText string
	AnswerText   string
	Analysis     analysis.Analysis
	CreatedAt    time.Time
}

// Reminder is a scheduled inactivity nudge tied to a session.
type Reminder struct {
	ID          int64
	UserID      int64
	SessionID   int64
	ScheduledAt time.Time
	Sent        bool
	SentAt      *time.Time
	Cancelled   bool
	CreatedAt   time.Time
}

// Active reports whether the reminder may still be dispatched.
func (r *Reminder) Active() bool {
	return !r.Sent && !r.Cancelled
}
