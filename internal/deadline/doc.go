// Package deadline turns the deadline card's choices ("today", "week",
// "month", ...) and user-typed YYYY-MM-DD dates into calendar dates.
//
// All computations take the current instant and a *time.Location as
// arguments so results are deterministic in tests.
package deadline
