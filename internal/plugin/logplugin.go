package plugin

import (
	"github.com/radarmon/radar/internal/logger"
)

func init() {
	Register("log", func(s Settings) (Plugin, error) {
		return &LogPlugin{all: s.Bool("all", false)}, nil
	})
}

// LogPlugin writes status changes to the server log. With the "all"
// setting every reply is logged, changed or not.
type LogPlugin struct {
	log logger.Logger
	all bool
}

func (p *LogPlugin) Name() string { return "log" }
func (p *LogPlugin) Version() string { return "0.1.0" }

func (p *LogPlugin) Start(log logger.Logger) error {
	p.log = log
	return nil
}

func (p *LogPlugin) OnCheckReply(r Reply) error {
	p.write("check", r)
	return nil
}

func (p *LogPlugin) OnTestReply(r Reply) error {
	p.write("test", r)
	return nil
}

func (p *LogPlugin) write(kind string, r Reply) {
	for _, c := range r.Checks {
		if !p.all && c.CurrentStatus == c.PreviousStatus {
			continue
		}
		p.log.Info("%s %s:%d '%s' %s -> %s %s", kind, r.Address, r.Port, c.Name, c.PreviousStatus, c.CurrentStatus, c.Details)
	}
}

func (p *LogPlugin) Shutdown() error { return nil }
