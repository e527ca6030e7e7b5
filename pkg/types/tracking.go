package types

type Tracking interface {
	TrackRuleContexts(sessionId string, previous, current []string) error
	Close() error
}
