// Package scheduler runs crawls on a cron schedule.
//
// Schedules use the standard five-field cron syntax and the descriptors
// understood by github.com/robfig/cron/v3 (@daily, @every 1h, ...). They
// are evaluated in Korea Standard Time by default, the time zone the
// brokerages publish in. A run that is still in progress when its next
// activation comes is skipped, not queued.
package scheduler
