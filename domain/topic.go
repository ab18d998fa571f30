package domain

// Topic identifies what kind of event an envelope carries.
// The canonical vocabulary below is closed and versioned with the envelope;
// unknown values are still carried through the bridge untouched.
type Topic string

// Window lifecycle
const (
	TopicWindowMinimize  Topic = "window.minimize"
	TopicWindowMaximize  Topic = "window.maximize"
	TopicWindowRestore   Topic = "window.restore"
	TopicWindowSnapLeft  Topic = "window.snap_left"
	TopicWindowSnapRight Topic = "window.snap_right"
	TopicWindowReset     Topic = "window.reset"
)

// Note lifecycle
const (
	TopicNoteOpen    Topic = "note.open"
	TopicNoteClose   Topic = "note.close"
	TopicNoteUpdate  Topic = "note.update"
	TopicNoteSave    Topic = "note.save"
	TopicNoteDelete  Topic = "note.delete"
	TopicNoteList    Topic = "note.list"
	TopicNoteRefresh Topic = "note.refresh"
)

// Content lifecycle
const (
	TopicContentCreated               Topic = "content.created"
	TopicContentUpdated               Topic = "content.updated"
	TopicContentLoaded                Topic = "content.loaded"
	TopicContentGenerationRequested   Topic = "content.generation_requested"
	TopicContentModificationRequested Topic = "content.modification_requested"
	TopicContentRollbackRequested     Topic = "content.rollback_requested"
)

// Participant and call lifecycle
const (
	TopicParticipantJoined      Topic = "call.participant_joined"
	TopicParticipantLeft        Topic = "call.participant_left"
	TopicFirstParticipantJoined Topic = "call.first_participant_joined"
	TopicCallStateChanged       Topic = "call.state_changed"
	TopicCallError              Topic = "call.error"
	TopicParticipantsChanged    Topic = "call.participants_changed"
	TopicParticipantKicked      Topic = "call.participant_kicked"
)

// Misc app control
const (
	TopicAppOpen           Topic = "app.open"
	TopicBrowserOpen       Topic = "app.browser_open"
	TopicBrowserClose      Topic = "app.browser_close"
	TopicDesktopModeSwitch Topic = "app.desktop_mode_switch"
	TopicMediaSearch       Topic = "app.media_search"
	TopicMediaPlay         Topic = "app.media_play"
	TopicMediaPause        Topic = "app.media_pause"
	TopicMediaNext         Topic = "app.media_next"
)

// AllTopics lists the canonical vocabulary in declaration order.
var AllTopics = []Topic{
	TopicWindowMinimize, TopicWindowMaximize, TopicWindowRestore,
	TopicWindowSnapLeft, TopicWindowSnapRight, TopicWindowReset,

	TopicNoteOpen, TopicNoteClose, TopicNoteUpdate, TopicNoteSave,
	TopicNoteDelete, TopicNoteList, TopicNoteRefresh,

	TopicContentCreated, TopicContentUpdated, TopicContentLoaded,
	TopicContentGenerationRequested, TopicContentModificationRequested,
	TopicContentRollbackRequested,

	TopicParticipantJoined, TopicParticipantLeft, TopicFirstParticipantJoined,
	TopicCallStateChanged, TopicCallError, TopicParticipantsChanged,
	TopicParticipantKicked,

	TopicAppOpen, TopicBrowserOpen, TopicBrowserClose, TopicDesktopModeSwitch,
	TopicMediaSearch, TopicMediaPlay, TopicMediaPause, TopicMediaNext,
}

var canonical = func() map[Topic]struct{} {
	res := make(map[Topic]struct{}, len(AllTopics))
	for _, t := range AllTopics {
		res[t] = struct{}{}
	}
	return res
}()

// IsCanonical reports whether t belongs to the canonical vocabulary.
func (t Topic) IsCanonical() bool {
	_, ok := canonical[t]
	return ok
}
