package monitor

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

// SchedulePurge registers a cron job that clears the history cache so cached
// series roll forward with the calendar.
func SchedulePurge(c *cron.Cron, spec string, s *State) (cron.EntryID, error) {
	id, err := c.AddFunc(spec, func() { s.PurgeHistory() })
	if err != nil {
		return 0, fmt.Errorf("schedule history purge %q: %w", spec, err)
	}
	return id, nil
}
