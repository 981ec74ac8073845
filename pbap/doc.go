// Package pbap implements the session layer of a Phonebook Access Profile
// client: the per-session state machine, validation of commands against it,
// and reassembly of streamed results into complete objects and records.
//
// A Controller is stateless apart from its collaborators. All session state
// lives in a caller-owned Session value, which is passed to Controller.Submit
// for commands and Controller.Apply for transport events. The Dispatcher
// serializes both onto a single goroutine, so transports may deliver events
// from any goroutine.
//
// State machine:
//
//	Disconnected --connect--> Connecting --opened(ok)--> Idle
//	Connecting --opened(error)--> Disconnected
//	Idle --operation--> Busy --completed--> Idle
//	Busy --abort--> Busy (completes with StatusAborted)
//	Idle|Busy --disconnect--> Disconnecting --closed--> Disconnected
package pbap
