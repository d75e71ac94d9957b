package switchctl

import "strings"

// The switch emits semi-structured plaintext whose shape is not
// contractually stable. Parsers here never fail: anything that does not
// match the expected shape degrades to an empty result, and callers get
// a drop count so format drift stays visible in logs.

// RegistrationTable is the parsed output of `show registrations`.
// The column set is whatever the switch returned that session; rows are
// keyed by the header names. Raw keeps the untouched response text for
// diagnostics.
type RegistrationTable struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
	Raw     string              `json:"-"`
	Dropped int                 `json:"-"`
}

const emptyRegistrationsMarker = "0 total"

// parseRegistrations handles the CSV-with-header table `show registrations`
// prints. Line 0 is the header; the last two lines are a switch-added
// footer. A data line is kept only when its field count matches the
// header's; everything else is dropped, never an error.
func parseRegistrations(raw string) RegistrationTable {
	out := RegistrationTable{Rows: []map[string]string{}, Raw: raw}

	if strings.Contains(raw, emptyRegistrationsMarker) {
		return out
	}

	lines := splitLines(raw)
	if len(lines) < 3 {
		return out
	}

	for _, h := range strings.Split(lines[0], ",") {
		out.Headers = append(out.Headers, strings.Trim(h, `" `))
	}

	for _, line := range lines[1 : len(lines)-2] {
		fields := strings.Split(line, ",")
		if len(fields) != len(out.Headers) {
			out.Dropped++
			continue
		}
		row := make(map[string]string, len(out.Headers))
		for i, h := range out.Headers {
			row[h] = strings.Trim(fields[i], `" `)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// SofiaEntry is one profile/gateway line of `sofia status`.
type SofiaEntry struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Data  string `json:"data"`
	State string `json:"state"`
}

// parseSofiaStatus handles the whitespace-columnar `sofia status` table:
// two header lines, a trailing summary line, and data lines in between.
// Only the first four columns are meaningful; lines with fewer than four
// fields are dropped.
func parseSofiaStatus(raw string) (entries []SofiaEntry, dropped int) {
	entries = []SofiaEntry{}

	lines := splitLines(raw)
	if len(lines) <= 3 {
		return entries, 0
	}

	for _, line := range lines[2 : len(lines)-1] {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			dropped++
			continue
		}
		entries = append(entries, SofiaEntry{
			Name:  fields[0],
			Type:  fields[1],
			Data:  fields[2],
			State: fields[3],
		})
	}
	return entries, dropped
}

// StatusInfo is the parsed output of `status`: one key per line, split at
// the first space. Keys preserves first-seen order; duplicate keys are
// last-write-wins. A line with no space yields a null value.
type StatusInfo struct {
	Keys   []string
	Values map[string]*string
}

func parseStatus(raw string) StatusInfo {
	info := StatusInfo{Values: map[string]*string{}}

	for _, line := range splitLines(raw) {
		if line == "" {
			continue
		}
		key, rest, found := strings.Cut(line, " ")
		if _, seen := info.Values[key]; !seen {
			info.Keys = append(info.Keys, key)
		}
		if found {
			v := rest
			info.Values[key] = &v
		} else {
			info.Values[key] = nil
		}
	}
	return info
}

const okToken = "success"

// normalizeOK collapses a response containing the command's success marker
// to the literal token "success"; anything else passes through unchanged
// so operators see what the switch actually said.
func normalizeOK(raw, marker string) string {
	if strings.Contains(raw, marker) {
		return okToken
	}
	return raw
}

// splitLines splits on newlines, trims carriage returns, and strips the
// empty trailing element a final newline produces.
func splitLines(raw string) []string {
	lines := strings.Split(raw, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
