// Package content serves the precomputed presentation artifacts: the
// insights document and the chart assets rendered next to the prediction
// form. Nothing here is computed at request time; files are read from disk,
// cached, and refreshed when they change.
package content
