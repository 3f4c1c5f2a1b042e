package internal

import (
	"sync"
	"time"

	"github.com/scythe504/mafia-backend/internal/clock"
)

const (
	MinPlayersToStart = 6
	RoomCodeLength    = 5
	MaxNameLength     = 24
	MaxChatLength     = 500
)

const (
	DayDiscussionDuration = 120 * time.Second
	DayVotingDuration     = 45 * time.Second
	SleepDuration         = 5 * time.Second
	DoctorDuration        = 20 * time.Second
	MafiaDuration         = 30 * time.Second
	ExecutionDuration     = 5 * time.Second
	AnnouncementDuration  = 10 * time.Second
)

type GamePhase string

const (
	PhaseLobby         GamePhase = "lobby"
	PhaseDayDiscussion GamePhase = "day_discussion"
	PhaseDayVoting     GamePhase = "day_voting"
	PhaseSleep         GamePhase = "sleep"
	PhaseDoctor        GamePhase = "doctor"
	PhaseMafia         GamePhase = "mafia"
	PhaseExecution     GamePhase = "execution"
	PhaseAnnouncement  GamePhase = "announcement"
	PhaseEnded         GamePhase = "ended"
)

// IsDay reports whether the detective may investigate in this phase.
func (p GamePhase) IsDay() bool {
	return p == PhaseDayDiscussion || p == PhaseDayVoting
}

// Timed reports whether the phase carries a deadline.
func (p GamePhase) Timed() bool {
	return p != PhaseLobby && p != PhaseEnded
}

type Role string

const (
	RoleTown      Role = "town"
	RoleMafia     Role = "mafia"
	RoleDoctor    Role = "doctor"
	RoleDetective Role = "detective"
)

type Faction string

const (
	FactionNone  Faction = ""
	FactionTown  Faction = "town"
	FactionMafia Faction = "mafia"
)

// PhaseDurations holds the length of every timed phase.
type PhaseDurations struct {
	DayDiscussion time.Duration
	DayVoting     time.Duration
	Sleep         time.Duration
	Doctor        time.Duration
	Mafia         time.Duration
	Execution     time.Duration
	Announcement  time.Duration
}

func DefaultPhaseDurations() PhaseDurations {
	return PhaseDurations{
		DayDiscussion: DayDiscussionDuration,
		DayVoting:     DayVotingDuration,
		Sleep:         SleepDuration,
		Doctor:        DoctorDuration,
		Mafia:         MafiaDuration,
		Execution:     ExecutionDuration,
		Announcement:  AnnouncementDuration,
	}
}

// For returns the duration of phase p, or zero for untimed phases.
func (d PhaseDurations) For(p GamePhase) time.Duration {
	switch p {
	case PhaseDayDiscussion:
		return d.DayDiscussion
	case PhaseDayVoting:
		return d.DayVoting
	case PhaseSleep:
		return d.Sleep
	case PhaseDoctor:
		return d.Doctor
	case PhaseMafia:
		return d.Mafia
	case PhaseExecution:
		return d.Execution
	case PhaseAnnouncement:
		return d.Announcement
	default:
		return 0
	}
}

// GameTimer is the room's single pending wake-up; PhaseEndsAt carries its deadline.
type GameTimer struct {
	Generation uint64
	Handle     clock.Timer
}

type Host struct {
	Name   string `json:"name"`
	Token  string `json:"-"`
	ConnID string `json:"-"`
}

type Player struct {
	Id          string    `json:"id"`
	Token       string    `json:"-"`
	ConnID      string    `json:"-"`
	Username    string    `json:"username"`
	Role        Role      `json:"role,omitempty"`
	IsAlive     bool      `json:"is_alive"`
	IsConnected bool      `json:"is_connected"`
	JoinedAt    time.Time `json:"joined_at"`
}

type Room struct {
	Code         string
	Phase        GamePhase
	PhaseEndsAt  *time.Time
	RoundNumber  int
	Announcement string
	Host         *Host
	Players      []*Player
	Winner       Faction

	// Pending phase inputs
	DayVotes        map[string]string // voter id -> target id
	NightVotes      map[string]string
	DoctorTarget    string
	DetectiveUsed   bool
	DetectiveTarget string

	// Timer
	Timer    *GameTimer
	TimerSeq uint64

	StartedAt    time.Time
	CreatedAt    time.Time
	LastActivity time.Time
	Closed       bool

	Mu sync.Mutex `json:"-"`
}

// GameRecord is the archived outcome of a finished game.
type GameRecord struct {
	ID        int64         `json:"id"`
	RoomCode  string        `json:"room_code"`
	Winner    Faction       `json:"winner"`
	Rounds    int           `json:"rounds"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Players   []FinalPlayer `json:"players"`
}
