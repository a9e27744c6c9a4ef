package languageserver

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/vibecode-tools/antigravity-bridge-go/pkg/errors"
)

// Output parsers for the OS tooling the detection engine shells out to.
// They are kept free of build tags so every platform's parsing is
// covered by tests regardless of where the tests run.

// parsePSLine parses one `ps aux` row into (pid, command line).
// Standard ps aux layout: USER PID %CPU %MEM VSZ RSS TTY STAT START
// TIME COMMAND..., with the command occupying everything from field 10.
func parsePSLine(line string) (int, string, error) {
	parts := strings.Fields(line)
	if len(parts) < 11 {
		return 0, "", errors.NewParseError("unexpected ps output format", nil)
	}
	pid, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, "", errors.NewParseError("invalid PID in ps output", err)
	}
	return pid, strings.Join(parts[10:], " "), nil
}

// parsePPID parses the output of `ps -o ppid= -p PID`.
func parsePPID(output string) (int, error) {
	ppid, err := strconv.Atoi(strings.TrimSpace(output))
	if err != nil {
		return 0, errors.NewParseError("invalid PPID in ps output", err)
	}
	return ppid, nil
}

// parseTasklistCSV extracts PIDs from `tasklist /FO CSV /NH` output.
// Rows look like: "image name","PID","session","session#","mem".
func parseTasklistCSV(output string) []int {
	var pids []int
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ",")
		if len(fields) < 2 {
			continue
		}
		pidField := strings.Trim(strings.TrimSpace(fields[1]), `"`)
		pid, err := strconv.Atoi(pidField)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// parseCIMProcessCSV parses the CSV emitted by
// `Get-CimInstance Win32_Process ... | ConvertTo-Csv -NoTypeInformation`
// with columns ProcessId, ParentProcessId, CommandLine. The command line
// itself may contain commas, so everything past the second column is
// rejoined.
func parseCIMProcessCSV(output string) (int, string, error) {
	var dataLine string
	scanner := bufio.NewScanner(strings.NewReader(output))
	sawHeader := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !sawHeader {
			sawHeader = true
			continue
		}
		dataLine = line
		break
	}
	if dataLine == "" {
		return 0, "", errors.NewParseError("no process data in PowerShell output", nil)
	}

	fields := strings.Split(dataLine, ",")
	if len(fields) < 3 {
		return 0, "", errors.NewParseError("unexpected PowerShell CSV format", nil)
	}

	ppid, _ := strconv.Atoi(strings.Trim(strings.TrimSpace(fields[1]), `"`))
	cmdline := strings.Trim(strings.Join(fields[2:], ","), `"`)
	return ppid, cmdline, nil
}

// parseLsofPorts extracts listening ports from
// `lsof -iTCP -sTCP:LISTEN -n -P -p PID` output. The NAME column
// (field 8) holds addresses like "*:9001" or "127.0.0.1:9001".
// De-duplicates while preserving first-seen order.
func parseLsofPorts(output string) []int {
	var ports []int
	scanner := bufio.NewScanner(strings.NewReader(output))
	first := true
	for scanner.Scan() {
		if first { // header row
			first = false
			continue
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) < 9 {
			continue
		}
		if port := portFromAddress(fields[8]); port != 0 && !containsPort(ports, port) {
			ports = append(ports, port)
		}
	}
	return ports
}

// parseNetstatPorts extracts listening ports owned by pid from
// `netstat -ano` output. TCP rows look like:
// "TCP  127.0.0.1:PORT  0.0.0.0:0  LISTENING  PID".
func parseNetstatPorts(output string, pid int) []int {
	pidField := strconv.Itoa(pid)
	var ports []int
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 5 {
			continue
		}
		if fields[3] != "LISTENING" || fields[4] != pidField {
			continue
		}
		if port := portFromAddress(fields[1]); port != 0 && !containsPort(ports, port) {
			ports = append(ports, port)
		}
	}
	return ports
}

// portFromAddress extracts the port suffix from an address like
// "127.0.0.1:9001", "[::]:9001" or "*:9001".
func portFromAddress(addr string) int {
	idx := strings.LastIndex(addr, ":")
	if idx < 0 || idx == len(addr)-1 {
		return 0
	}
	return parsePort(addr[idx+1:])
}

func containsPort(ports []int, port int) bool {
	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}
