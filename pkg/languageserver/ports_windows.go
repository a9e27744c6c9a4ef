//go:build windows

package languageserver

import (
	"context"
)

func (d *PortDiscoverer) scanPorts(ctx context.Context, pid int) ([]int, error) {
	output, err := d.runner.Run(ctx, "netstat", "-ano")
	if err != nil {
		return nil, err
	}
	return parseNetstatPorts(output, pid), nil
}
