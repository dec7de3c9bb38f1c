package daemons

import (
	"time"

	"github.com/nexclub/nexclub/config"
	"github.com/nexclub/nexclub/jobs"
	"github.com/nexclub/nexclub/jobs/cron"
	"github.com/nexclub/nexclub/wallet"
)

type CronJob struct {
	Running bool
	Jobs    []jobs.Job
}

func NewCronJob() *CronJob {
	ledger := wallet.NewLedger(config.DataBase, config.Nats)

	jobs := []jobs.Job{
		&cron.InactiveSweepJob{Ledger: ledger},
	}

	return &CronJob{Running: true, Jobs: jobs}
}

func (c *CronJob) Stop() {
	c.Running = false
}

func (c *CronJob) Start() {
	for _, job := range c.Jobs {
		go c.Process(job)
	}

	for {
		// Empty for to make it running for ever
		time.Sleep(1 * time.Second)
	}
}

func (c *CronJob) Process(job jobs.Job) {
	for {
		if !c.Running {
			break
		}

		job.Process()
	}
}
