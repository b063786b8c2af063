// Package recur registers named recurring submissions against the scheduler.
//
// A schedule is a string in one of three forms: a cron expression
// ("*/5 * * * *", "@hourly", "@every 55m"), a Go duration ("55m", "2h30m"),
// or an HH:MM interval ("02:30" meaning every 2h30m). On every tick the
// service submits the registered job function for immediate execution; the
// scheduler's queue and workers do the rest.
//
// Schedules are upserted by name, so re-registering after a config reload
// never duplicates triggers.
package recur
