// Package bridge connects the chat platform and the task tracker to the
// task-creation wizard.
//
// Chat events arrive from two sources: the websocket stream (messages) and
// interactive callbacks (card clicks). Both are normalized into wizard
// inputs and sent through Engine.Dispatch, which applies them to the thread's
// session under its exclusive lock and executes the resulting effects. An
// effect's outcome is applied as a further input, so one Dispatch call
// leaves the session quiescent.
package bridge
