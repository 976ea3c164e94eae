package bootstrap

import (
	"fmt"
	"io"
	"os"
)

// ChainEntry is one configured interceptor position.
type ChainEntry struct {
	Name    string
	Enabled bool
	Detail  string
}

// Summary records what NewFetcher assembled so it can be shown at startup.
type Summary struct {
	name      string
	version   string
	transport string
	chain     []ChainEntry
}

// NewSummary creates an empty summary for the named fetcher.
func NewSummary(name, version string) *Summary {
	return &Summary{name: name, version: version, chain: make([]ChainEntry, 0)}
}

// SetTransport records a description of the terminal transport.
func (s *Summary) SetTransport(desc string) {
	s.transport = desc
}

// Track records one chain position, enabled or not.
func (s *Summary) Track(name string, enabled bool, detail string) {
	s.chain = append(s.chain, ChainEntry{Name: name, Enabled: enabled, Detail: detail})
}

// Chain returns the tracked positions in execution order.
func (s *Summary) Chain() []ChainEntry {
	return append([]ChainEntry(nil), s.chain...)
}

// Enabled returns the names of the enabled positions in execution order.
func (s *Summary) Enabled() []string {
	names := make([]string, 0, len(s.chain))
	for _, e := range s.chain {
		if e.Enabled {
			names = append(names, e.Name)
		}
	}
	return names
}

// DisplaySummary prints the summary to stdout.
func (s *Summary) DisplaySummary() {
	s.Write(os.Stdout)
}

// Write renders the summary as a tree, outermost interceptor first.
func (s *Summary) Write(w io.Writer) {
	header := s.name
	if s.version != "" {
		header += " v" + s.version
	}
	fmt.Fprintf(w, "\n🔗 %s\n", header)

	enabled := s.Enabled()
	if len(enabled) == 0 {
		fmt.Fprintf(w, "   ├── (no interceptors)\n")
	}
	for _, e := range s.chain {
		if !e.Enabled {
			continue
		}
		line := e.Name
		if e.Detail != "" {
			line += ": " + e.Detail
		}
		fmt.Fprintf(w, "   ├── ✅ %s\n", line)
	}
	transport := s.transport
	if transport == "" {
		transport = "default"
	}
	fmt.Fprintf(w, "   └── 🌐 transport: %s\n", transport)

	if disabled := len(s.chain) - len(enabled); disabled > 0 {
		fmt.Fprintf(w, "\n⏸️  %d interceptors disabled\n", disabled)
	}
	fmt.Fprintf(w, "\n")
}
