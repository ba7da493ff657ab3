package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/domain"
	"github.com/gaetanog1994-web/job-ixl-graph-service/internal/records"
)

// Generator produces synthetic users and applications for the candidacy graph.
type Generator struct {
	cfg           Config
	rand          *rand.Rand
	nameFragments nameFragments
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumUsers <= 0 {
		cfg.NumUsers = def.NumUsers
	}
	if cfg.MaxApplicationsPerUser < 0 {
		cfg.MaxApplicationsPerUser = 0
	}
	if cfg.RingMaxLength < 2 {
		cfg.RingMaxLength = def.RingMaxLength
	}
	if cfg.RingMaxLength > cfg.NumUsers {
		cfg.RingMaxLength = cfg.NumUsers
	}
	cfg.NullPriorityChance = clampProbability(cfg.NullPriorityChance)
	cfg.MissingNameChance = clampProbability(cfg.MissingNameChance)
	cfg.InactiveChance = clampProbability(cfg.InactiveChance)
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}

	return &Generator{
		cfg:           cfg,
		rand:          rand.New(rand.NewSource(cfg.Seed)),
		nameFragments: defaultNameFragments(),
	}
}

// Generate synthesises users and applications. It respects context cancellation.
// Active users file random applications ranked 1..n; planted rings are appended last.
func (g *Generator) Generate(ctx context.Context) (records.Dataset, error) {
	users := make([]records.User, g.cfg.NumUsers)
	for i := range users {
		users[i] = records.User{
			ID:     fmt.Sprintf("USR-%05d", i+1),
			Active: g.rand.Float64() >= g.cfg.InactiveChance,
		}
		if g.rand.Float64() >= g.cfg.MissingNameChance {
			users[i].FullName = g.randomFullName()
		}
	}

	var applications []domain.ApplicationRecord
	if g.cfg.NumUsers > 1 {
		for _, u := range users {
			if err := ctx.Err(); err != nil {
				return records.Dataset{}, err
			}
			if !u.Active {
				continue
			}
			applications = append(applications, g.applicationsFor(u.ID, users)...)
		}

		for range g.cfg.Rings {
			if err := ctx.Err(); err != nil {
				return records.Dataset{}, err
			}
			applications = append(applications, g.ring(users)...)
		}
	}

	return records.Dataset{Users: users, Applications: applications}, nil
}

func (g *Generator) applicationsFor(userID string, users []records.User) []domain.ApplicationRecord {
	if g.cfg.MaxApplicationsPerUser == 0 {
		return nil
	}
	count := g.rand.Intn(g.cfg.MaxApplicationsPerUser + 1)
	chosen := make(map[string]struct{}, count)
	apps := make([]domain.ApplicationRecord, 0, count)

	for attempts := 0; len(apps) < count && attempts < count*4; attempts++ {
		target := users[g.rand.Intn(len(users))].ID
		if target == userID {
			continue
		}
		if _, dup := chosen[target]; dup {
			continue
		}
		chosen[target] = struct{}{}
		apps = append(apps, domain.ApplicationRecord{
			UserID:       userID,
			TargetUserID: target,
			Priority:     g.priority(len(apps) + 1),
		})
	}
	return apps
}

// ring plants a closed chain over distinct users.
func (g *Generator) ring(users []records.User) []domain.ApplicationRecord {
	size := 2 + g.rand.Intn(g.cfg.RingMaxLength-1)
	members := g.rand.Perm(len(users))[:size]

	apps := make([]domain.ApplicationRecord, 0, size)
	for i, idx := range members {
		next := members[(i+1)%size]
		apps = append(apps, domain.ApplicationRecord{
			UserID:       users[idx].ID,
			TargetUserID: users[next].ID,
			Priority:     g.priority(1 + g.rand.Intn(3)),
		})
	}
	return apps
}

func (g *Generator) priority(rank int) *float64 {
	if g.rand.Float64() < g.cfg.NullPriorityChance {
		return nil
	}
	p := float64(rank)
	return &p
}

func (g *Generator) randomFullName() string {
	return fmt.Sprintf("%s %s", g.nameFragments.first[g.rand.Intn(len(g.nameFragments.first))],
		g.nameFragments.last[g.rand.Intn(len(g.nameFragments.last))])
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

type nameFragments struct {
	first []string
	last  []string
}

func defaultNameFragments() nameFragments {
	return nameFragments{
		first: []string{"Jane", "John", "Alex", "Priya", "Liu", "Maria", "Omar", "Sofia", "Noah", "Emma", "Lucas", "Mia", "Ava", "Ethan", "Zara"},
		last:  []string{"Doe", "Smith", "Chen", "Patel", "Garcia", "Khan", "Kim", "Ivanov", "Nguyen", "Silva", "Brown", "Lee"},
	}
}
