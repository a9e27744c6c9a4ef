//go:build !windows

package languageserver

import (
	"context"
	"strconv"
)

func (d *PortDiscoverer) scanPorts(ctx context.Context, pid int) ([]int, error) {
	output, err := d.runner.Run(ctx, "lsof",
		"-iTCP", "-sTCP:LISTEN", "-n", "-P", "-p", strconv.Itoa(pid))
	if err != nil {
		return nil, err
	}
	return parseLsofPorts(output), nil
}
