package runtime

import "dsatter-client/domain"

// Route is what the client does with the elements of a recognized frame.
type Route int

const (
	// RouteIgnored marks types the client knows but does not handle.
	// Nothing is invoked for them.
	RouteIgnored Route = iota
	// RouteDeliver parses each element as a Message and queues it.
	RouteDeliver
	// RouteAcknowledge only records the node-server acknowledgement.
	RouteAcknowledge
)

func (r Route) String() string {
	switch r {
	case RouteIgnored:
		return "ignored"
	case RouteDeliver:
		return "deliver"
	case RouteAcknowledge:
		return "acknowledge"
	default:
		return "unknown"
	}
}

var dispatchTable = map[domain.MessageType]Route{
	domain.ClientSyncRequest:     RouteIgnored,
	domain.ClientSyncReply:       RouteIgnored,
	domain.NewMessageFromClient:  RouteIgnored, // only ever sent by the client
	domain.NewMessagesForClient:  RouteDeliver,
	domain.ClientMessageResponse: RouteAcknowledge,
}

// RouteFor looks a message type up in the dispatch table.
// ok is false for types the client does not know.
func RouteFor(messageType domain.MessageType) (route Route, ok bool) {
	route, ok = dispatchTable[messageType]
	return route, ok
}
