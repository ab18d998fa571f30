package runtime

import (
	"event-bridge/contract"
	"event-bridge/domain"
	"event-bridge/runtime/workers"
)

const (
	// CatchAllChannel receives every accepted envelope, known topic or not.
	CatchAllChannel ChannelName = "bridge:event"
	// ContentChangedChannel is the generic refresh signal for content mutations.
	ContentChangedChannel ChannelName = "bridge:content-changed"
)

var topicChannels = map[domain.Topic]ChannelName{
	domain.TopicWindowMinimize:  "window:minimize",
	domain.TopicWindowMaximize:  "window:maximize",
	domain.TopicWindowRestore:   "window:restore",
	domain.TopicWindowSnapLeft:  "window:snap-left",
	domain.TopicWindowSnapRight: "window:snap-right",
	domain.TopicWindowReset:     "window:reset",

	domain.TopicNoteOpen:    "note:open",
	domain.TopicNoteClose:   "note:close",
	domain.TopicNoteUpdate:  "note:update",
	domain.TopicNoteSave:    "note:save",
	domain.TopicNoteDelete:  "note:delete",
	domain.TopicNoteList:    "note:list",
	domain.TopicNoteRefresh: "note:refresh",

	domain.TopicContentCreated:               "content:created",
	domain.TopicContentUpdated:               "content:updated",
	domain.TopicContentLoaded:                "content:loaded",
	domain.TopicContentGenerationRequested:   "content:generation-requested",
	domain.TopicContentModificationRequested: "content:modification-requested",
	domain.TopicContentRollbackRequested:     "content:rollback-requested",

	domain.TopicParticipantJoined:      "call:participant-joined",
	domain.TopicParticipantLeft:        "call:participant-left",
	domain.TopicFirstParticipantJoined: "call:first-participant-joined",
	domain.TopicCallStateChanged:       "call:state-changed",
	domain.TopicCallError:              "call:error",
	domain.TopicParticipantsChanged:    "call:participants-changed",
	domain.TopicParticipantKicked:      "call:participant-kicked",

	domain.TopicAppOpen:           "app:open",
	domain.TopicBrowserOpen:       "app:browser-open",
	domain.TopicBrowserClose:      "app:browser-close",
	domain.TopicDesktopModeSwitch: "app:desktop-mode-switch",
	domain.TopicMediaSearch:       "app:media-search",
	domain.TopicMediaPlay:         "app:media-play",
	domain.TopicMediaPause:        "app:media-pause",
	domain.TopicMediaNext:         "app:media-next",
}

// legacyChannels maps string identifiers that predate the canonical vocabulary.
var legacyChannels = map[string]ChannelName{
	"bot_speaking_started": "legacy:bot-speaking",
	"bot_speaking_stopped": "legacy:bot-speaking",
	"view_state_changed":   "legacy:view-state",
}

var contentChangeTopics = map[domain.Topic]struct{}{
	domain.TopicContentCreated:           {},
	domain.TopicContentUpdated:           {},
	domain.TopicContentRollbackRequested: {},
}

// ChannelFor returns the dedicated channel of a topic, canonical or legacy.
func ChannelFor(topic domain.Topic) (ChannelName, bool) {
	if ch, ok := topicChannels[topic]; ok {
		return ch, true
	}
	ch, ok := legacyChannels[string(topic)]
	return ch, ok
}

// Route is a pure function of the topic: dedicated channel first, then the
// derived content signal, then the catch-all.
func Route(topic domain.Topic) []ChannelName {
	res := make([]ChannelName, 0, 3)
	if ch, ok := ChannelFor(topic); ok {
		res = append(res, ch)
	}
	if _, ok := contentChangeTopics[topic]; ok {
		res = append(res, ContentChangedChannel)
	}
	return append(res, CatchAllChannel)
}

// Router fans accepted envelopes out to named channels.
// It does no buffering, ordering or retry.
type Router struct {
	registry *Registry
	fanout   *workers.EventFanout
}

func NewRouter(registry *Registry, fanout *workers.EventFanout) *Router {
	return &Router{registry: registry, fanout: fanout}
}

func (r *Router) Publish(env domain.Envelope) {
	for _, channel := range Route(env.Topic) {
		listeners := r.registry.Listeners(channel)
		if len(listeners) == 0 {
			continue
		}
		r.fanout.Fanout(string(channel), env, listeners)
	}
}

func (r *Router) Subscribe(channel ChannelName, listener contract.Listener) func() {
	return r.registry.Subscribe(channel, listener)
}

// SubscribeTopic is a shortcut for the dedicated channel of a topic.
// It reports false when the topic has no dedicated channel.
func (r *Router) SubscribeTopic(topic domain.Topic, listener contract.Listener) (func(), bool) {
	ch, ok := ChannelFor(topic)
	if !ok {
		return func() {}, false
	}
	return r.registry.Subscribe(ch, listener), true
}
