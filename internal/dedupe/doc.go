// Package dedupe provides a small TTL cache of handled event ids.
//
// The websocket stream can replay posts after a reconnect and the chat
// server may deliver the same interactive callback more than once; both
// paths call Cache.Seen with the event id before doing any work.
package dedupe
