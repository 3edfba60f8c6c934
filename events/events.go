package events

var (
	ConnectionOpened = &FeedOf[Connection]{}    // A pub/sub connection reached the open state.
	ConnectionClosed = &FeedOf[Disconnection]{} // A pub/sub connection was torn down, fired once per connection.
)

type Connection struct {
	URL string
}

type Disconnection struct {
	URL string
	Err error // nil when closed on request
}
