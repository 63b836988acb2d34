// Package wizard implements the task-creation dialog as a pure state machine.
//
// Machine.Apply takes the current session.Session and an Input and returns
// the next session plus a list of Effects. It never performs I/O: loading
// projects, posting cards and creating the task are all returned as
// effects, and their outcomes come back as result inputs (OptionsLoaded,
// CardPosted, TaskCreated, ...). The caller runs the whole exchange under
// the session's lock.
//
// Dialog flow:
//
//	awaiting_project -> awaiting_board -> awaiting_column -> awaiting_assignee
//	  -> awaiting_deadline [-> awaiting_custom_date] -> active -> finished
//
// Cancel reaches cancelled from any non-terminal stage. A forced finish
// (idle timeout) reaches finished from any non-terminal stage.
package wizard
