package tenantauth

import "strings"

// ChromeVariant names which navigation chrome to render for a path.
type ChromeVariant string

const (
	ChromeConsumer ChromeVariant = "consumer"
	ChromeBusiness ChromeVariant = "business"
)

// SelectChrome is a pure function of the path prefix: business chrome for
// business-prefixed paths and the business landing page, consumer chrome
// otherwise.
func SelectChrome(path string) ChromeVariant {
	if strings.HasPrefix(path, "/business") || path == "/for-business" {
		return ChromeBusiness
	}
	return ChromeConsumer
}

// ChromeState describes which controls the chosen chrome displays. It is
// derived from both session stores without merging them.
type ChromeState struct {
	Variant     ChromeVariant
	ShowLogin   bool
	ShowSignup  bool
	ShowProfile bool
	ShowLogout  bool
	DisplayName string
}

// ChromeSelector reads both stores to describe the chrome for a path. It
// holds no state of its own.
type ChromeSelector struct {
	consumer *ConsumerStore
	business *BusinessStore
}

func NewChromeSelector(consumer *ConsumerStore, business *BusinessStore) *ChromeSelector {
	return &ChromeSelector{consumer: consumer, business: business}
}

// State resolves the chrome variant for path and the controls it shows for
// the relevant tenant's session.
func (cs *ChromeSelector) State(path string) ChromeState {
	variant := SelectChrome(path)
	state := ChromeState{Variant: variant}

	switch variant {
	case ChromeBusiness:
		session := cs.business.Session()
		if session.Identity != nil {
			state.ShowProfile = true
			state.ShowLogout = true
			if session.Profile != nil {
				state.DisplayName = session.Profile.BusinessName
			}
		} else {
			state.ShowLogin = true
			state.ShowSignup = true
		}
	default:
		session := cs.consumer.Session()
		if session.IsLoggedIn {
			state.ShowProfile = true
			state.ShowLogout = true
			state.DisplayName = session.Identity.DisplayName()
		} else {
			state.ShowLogin = true
			state.ShowSignup = true
		}
	}

	return state
}
