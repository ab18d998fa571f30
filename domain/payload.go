package domain

import (
	"encoding/json"
	"event-bridge/errors"
	"fmt"
)

// Payload is the closed union of event bodies, one concrete type per topic.
type Payload interface {
	Topic() Topic
}

// WindowTarget is shared by every window lifecycle command.
type WindowTarget struct {
	WindowID string `json:"windowId,omitempty"`
}

type WindowMinimize struct{ WindowTarget }
type WindowMaximize struct{ WindowTarget }
type WindowRestore struct{ WindowTarget }
type WindowSnapLeft struct{ WindowTarget }
type WindowSnapRight struct{ WindowTarget }
type WindowReset struct{ WindowTarget }

func (WindowMinimize) Topic() Topic  { return TopicWindowMinimize }
func (WindowMaximize) Topic() Topic  { return TopicWindowMaximize }
func (WindowRestore) Topic() Topic   { return TopicWindowRestore }
func (WindowSnapLeft) Topic() Topic  { return TopicWindowSnapLeft }
func (WindowSnapRight) Topic() Topic { return TopicWindowSnapRight }
func (WindowReset) Topic() Topic     { return TopicWindowReset }

// Note is the body carried by note lifecycle events.
type Note struct {
	NoteID  string `json:"noteId,omitempty"`
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
}

type NoteOpen struct{ Note }
type NoteClose struct{ Note }
type NoteUpdate struct{ Note }
type NoteSave struct{ Note }
type NoteDelete struct{ Note }
type NoteList struct {
	Notes []Note `json:"notes"`
}
type NoteRefresh struct{}

func (NoteOpen) Topic() Topic    { return TopicNoteOpen }
func (NoteClose) Topic() Topic   { return TopicNoteClose }
func (NoteUpdate) Topic() Topic  { return TopicNoteUpdate }
func (NoteSave) Topic() Topic    { return TopicNoteSave }
func (NoteDelete) Topic() Topic  { return TopicNoteDelete }
func (NoteList) Topic() Topic    { return TopicNoteList }
func (NoteRefresh) Topic() Topic { return TopicNoteRefresh }

// Content describes a generated artifact (page, document, applet).
type Content struct {
	ContentID string `json:"contentId"`
	Version   int    `json:"version,omitempty"`
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
}

type ContentCreated struct{ Content }
type ContentUpdated struct{ Content }
type ContentLoaded struct{ Content }
type ContentGenerationRequested struct {
	Prompt string `json:"prompt"`
}
type ContentModificationRequested struct {
	ContentID string `json:"contentId"`
	Prompt    string `json:"prompt"`
}
type ContentRollbackRequested struct {
	ContentID     string `json:"contentId"`
	TargetVersion int    `json:"targetVersion"`
}

func (ContentCreated) Topic() Topic               { return TopicContentCreated }
func (ContentUpdated) Topic() Topic               { return TopicContentUpdated }
func (ContentLoaded) Topic() Topic                { return TopicContentLoaded }
func (ContentGenerationRequested) Topic() Topic   { return TopicContentGenerationRequested }
func (ContentModificationRequested) Topic() Topic { return TopicContentModificationRequested }
func (ContentRollbackRequested) Topic() Topic     { return TopicContentRollbackRequested }

// ParticipantRef names one attendee in call lifecycle events.
type ParticipantRef struct {
	SessionKey    string `json:"sessionKey,omitempty"`
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName,omitempty"`
}

type ParticipantJoined struct{ ParticipantRef }
type ParticipantLeft struct{ ParticipantRef }
type FirstParticipantJoined struct{ ParticipantRef }
type CallStateChanged struct {
	SessionKey string `json:"sessionKey,omitempty"`
	State      string `json:"state"`
}
type CallError struct {
	SessionKey string `json:"sessionKey,omitempty"`
	Message    string `json:"message"`
}

// ParticipantsChanged carries the coalesced aggregate emitted on debounce flush.
type ParticipantsChanged struct{ ParticipantsSnapshot }

// ParticipantKicked is privately addressed through TargetParticipantID.
type ParticipantKicked struct {
	Reason string `json:"reason,omitempty"`
}

func (ParticipantJoined) Topic() Topic      { return TopicParticipantJoined }
func (ParticipantLeft) Topic() Topic        { return TopicParticipantLeft }
func (FirstParticipantJoined) Topic() Topic { return TopicFirstParticipantJoined }
func (CallStateChanged) Topic() Topic       { return TopicCallStateChanged }
func (CallError) Topic() Topic              { return TopicCallError }
func (ParticipantsChanged) Topic() Topic    { return TopicParticipantsChanged }
func (ParticipantKicked) Topic() Topic      { return TopicParticipantKicked }

type AppOpen struct {
	App string `json:"app"`
}
type BrowserOpen struct {
	URL string `json:"url"`
}
type BrowserClose struct{}
type DesktopModeSwitch struct {
	Mode string `json:"mode"`
}

// Media is shared by media control events.
type Media struct {
	Query   string `json:"query,omitempty"`
	MediaID string `json:"mediaId,omitempty"`
}

type MediaSearch struct{ Media }
type MediaPlay struct{ Media }
type MediaPause struct{ Media }
type MediaNext struct{ Media }

func (AppOpen) Topic() Topic           { return TopicAppOpen }
func (BrowserOpen) Topic() Topic       { return TopicBrowserOpen }
func (BrowserClose) Topic() Topic      { return TopicBrowserClose }
func (DesktopModeSwitch) Topic() Topic { return TopicDesktopModeSwitch }
func (MediaSearch) Topic() Topic       { return TopicMediaSearch }
func (MediaPlay) Topic() Topic         { return TopicMediaPlay }
func (MediaPause) Topic() Topic        { return TopicMediaPause }
func (MediaNext) Topic() Topic         { return TopicMediaNext }

// payloadFactories must hold one entry per canonical topic.
var payloadFactories = map[Topic]func() Payload{
	TopicWindowMinimize:  func() Payload { return &WindowMinimize{} },
	TopicWindowMaximize:  func() Payload { return &WindowMaximize{} },
	TopicWindowRestore:   func() Payload { return &WindowRestore{} },
	TopicWindowSnapLeft:  func() Payload { return &WindowSnapLeft{} },
	TopicWindowSnapRight: func() Payload { return &WindowSnapRight{} },
	TopicWindowReset:     func() Payload { return &WindowReset{} },

	TopicNoteOpen:    func() Payload { return &NoteOpen{} },
	TopicNoteClose:   func() Payload { return &NoteClose{} },
	TopicNoteUpdate:  func() Payload { return &NoteUpdate{} },
	TopicNoteSave:    func() Payload { return &NoteSave{} },
	TopicNoteDelete:  func() Payload { return &NoteDelete{} },
	TopicNoteList:    func() Payload { return &NoteList{} },
	TopicNoteRefresh: func() Payload { return &NoteRefresh{} },

	TopicContentCreated:               func() Payload { return &ContentCreated{} },
	TopicContentUpdated:               func() Payload { return &ContentUpdated{} },
	TopicContentLoaded:                func() Payload { return &ContentLoaded{} },
	TopicContentGenerationRequested:   func() Payload { return &ContentGenerationRequested{} },
	TopicContentModificationRequested: func() Payload { return &ContentModificationRequested{} },
	TopicContentRollbackRequested:     func() Payload { return &ContentRollbackRequested{} },

	TopicParticipantJoined:      func() Payload { return &ParticipantJoined{} },
	TopicParticipantLeft:        func() Payload { return &ParticipantLeft{} },
	TopicFirstParticipantJoined: func() Payload { return &FirstParticipantJoined{} },
	TopicCallStateChanged:       func() Payload { return &CallStateChanged{} },
	TopicCallError:              func() Payload { return &CallError{} },
	TopicParticipantsChanged:    func() Payload { return &ParticipantsChanged{} },
	TopicParticipantKicked:      func() Payload { return &ParticipantKicked{} },

	TopicAppOpen:           func() Payload { return &AppOpen{} },
	TopicBrowserOpen:       func() Payload { return &BrowserOpen{} },
	TopicBrowserClose:      func() Payload { return &BrowserClose{} },
	TopicDesktopModeSwitch: func() Payload { return &DesktopModeSwitch{} },
	TopicMediaSearch:       func() Payload { return &MediaSearch{} },
	TopicMediaPlay:         func() Payload { return &MediaPlay{} },
	TopicMediaPause:        func() Payload { return &MediaPause{} },
	TopicMediaNext:         func() Payload { return &MediaNext{} },
}

// HasPayloadType reports whether a concrete payload type is registered for t.
func HasPayloadType(t Topic) bool {
	_, ok := payloadFactories[t]
	return ok
}

// DecodePayload turns the raw payload of an event envelope into its
// concrete type. The returned value is always a pointer.
func DecodePayload(env Envelope) (Payload, error) {
	factory, ok := payloadFactories[env.Topic]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownTopic, env.Topic)
	}
	payload := factory()
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return payload, nil
	}
	if err := json.Unmarshal(env.Payload, payload); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", env.Topic, err)
	}
	return payload, nil
}
