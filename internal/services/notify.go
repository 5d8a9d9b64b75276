package services

// Events pushed to clients watching a constitution
const (
	EventMembersChanged = "members_changed"
	EventSongsChanged   = "songs_changed"
	EventVotesChanged   = "votes_changed"
	EventStateChanged   = "state_changed"
	EventWinnerChanged  = "winner_changed"
	EventFinished       = "finished"
	EventDeleted        = "deleted"
)

// Broadcaster defines the interface for broadcasting messages to clients
type Broadcaster interface {
	BroadcastConstitutionEvent(constitutionID, event string)
}

// Recorder receives countable service events
type Recorder interface {
	Transition(transition, outcome string)
	Archive(outcome string)
	VoteSubmitted()
	CleanupPending(count int)
}

// notifier is embedded by services that publish events
type notifier struct {
	broadcaster Broadcaster
	recorder    Recorder
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (n *notifier) SetBroadcaster(b Broadcaster) {
	n.broadcaster = b
}

// SetRecorder sets the metrics recorder
func (n *notifier) SetRecorder(r Recorder) {
	n.recorder = r
}

func (n *notifier) broadcast(constitutionID, event string) {
	if n.broadcaster != nil {
		n.broadcaster.BroadcastConstitutionEvent(constitutionID, event)
	}
}

func (n *notifier) recordTransition(transition, outcome string) {
	if n.recorder != nil {
		n.recorder.Transition(transition, outcome)
	}
}

func (n *notifier) recordArchive(outcome string) {
	if n.recorder != nil {
		n.recorder.Archive(outcome)
	}
}

func (n *notifier) recordVote() {
	if n.recorder != nil {
		n.recorder.VoteSubmitted()
	}
}

func (n *notifier) recordCleanupPending(count int) {
	if n.recorder != nil {
		n.recorder.CleanupPending(count)
	}
}
