// Package supervisor enforces the idle timeout of task dialogs.
package supervisor
