// Package progress keeps aggregated session counters for a service.
package progress
