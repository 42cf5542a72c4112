// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quayside Contributors

package builtin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/quayside/quayside/internal/api"
	"github.com/quayside/quayside/internal/extension"
)

// ContainerSummary is the result of containers.summary.
type ContainerSummary struct {
	Total   int            `json:"total"`
	Running int            `json:"running"`
	Stopped int            `json:"stopped"`
	ByImage map[string]int `json:"byImage"`
}

// ContainerInsights contributes containers.summary and
// containers.restartAll, and keeps a status bar item with the running
// count.
type ContainerInsights struct {
	api *api.API

	mu     sync.Mutex
	status *api.StatusBarItem
}

// Activate implements direct.Extension.
func (c *ContainerInsights) Activate(_ context.Context, ec *extension.Context) error {
	c.api = ec.API
	item, err := ec.API.Window.CreateStatusBarItem(api.AlignLeft, 10)
	if err != nil {
		return err
	}
	item.SetCommand("containers.summary")
	item.SetTooltip("Containers")
	c.status = item

	if _, err := ec.API.Commands.Register("containers.summary", c.summary); err != nil {
		return err
	}
	_, err = ec.API.Commands.Register("containers.restartAll", c.restartAll)
	return err
}

func (c *ContainerInsights) summary(ctx context.Context, _ ...any) (any, error) {
	list, err := c.api.Containers.List(ctx, true)
	if err != nil {
		return nil, err
	}
	s := ContainerSummary{Total: len(list), ByImage: make(map[string]int)}
	for _, ct := range list {
		if ct.State == "running" {
			s.Running++
		} else {
			s.Stopped++
		}
		s.ByImage[ct.Image]++
	}

	c.mu.Lock()
	c.status.SetText(fmt.Sprintf("%d/%d running", s.Running, s.Total))
	c.status.Show()
	c.mu.Unlock()
	return s, nil
}

// restartAll stops and starts every running container. It returns the ids
// it restarted; the first failure ends the sweep.
func (c *ContainerInsights) restartAll(ctx context.Context, _ ...any) (any, error) {
	list, err := c.api.Containers.List(ctx, false)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	restarted := make([]string, 0, len(list))
	for _, ct := range list {
		if ct.State != "running" {
			continue
		}
		if err := c.api.Containers.Stop(ctx, ct.ID); err != nil {
			return restarted, err
		}
		if err := c.api.Containers.Start(ctx, ct.ID); err != nil {
			return restarted, err
		}
		restarted = append(restarted, ct.ID)
	}

	msg := fmt.Sprintf("Restarted %d container(s)", len(restarted))
	if err := c.api.Window.ShowMessage(ctx, msg, api.SeverityInfo); err != nil {
		slog.WarnContext(ctx, "restart notification failed", "extension", c.api.ExtensionID, "error", err)
	}
	return restarted, nil
}
