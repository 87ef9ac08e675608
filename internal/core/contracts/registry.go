package contracts

import "context"

// Registry is the in-process map from room name to the live connections
// subscribed to it. It also reference-counts connections per
// (room, user) so presence mutations only happen on the first join and
// the last leave of a user.
type Registry interface {
	// Join subscribes the client to its room and returns the number of
	// live connections this user now has in that room.
	Join(c Client) int
	// Leave unsubscribes the client and returns the number of live
	// connections the user still has in that room.
	Leave(c Client) int
	// Snapshot returns the subscribers of a room as they are at call
	// time. Fan-out iterates the snapshot, never the live map.
	Snapshot(roomName string) []Client
	// Rooms lists the rooms that currently have at least one subscriber.
	Rooms() []string
}

// Client is the minimal surface the registry and the fan-out paths need
// from one live connection.
type Client interface {
	UserID() string
	RoomName() string
	Send(ctx context.Context, data []byte) error
	Close()
}
