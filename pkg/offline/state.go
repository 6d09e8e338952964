package offline

const (
	//tygo:emit export type State = typeof StateInstalling | typeof StateWaiting | typeof StateActive | typeof StateSuperseded | typeof StateRedundant;
	StateInstalling = "installing"
	StateWaiting    = "waiting"
	StateActive     = "active"
	StateSuperseded = "superseded"
	StateRedundant  = "redundant"
)

// transitions lists the states each state may move to.
var transitions = map[string][]string{
	StateInstalling: {StateWaiting, StateRedundant},
	StateWaiting:    {StateActive, StateRedundant},
	StateActive:     {StateSuperseded},
}

func canTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
