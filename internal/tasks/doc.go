// Package tasks tracks the contacts an agent has open and the session timeline of the focused one.
package tasks
