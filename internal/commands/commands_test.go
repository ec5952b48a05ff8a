package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/gomega"

	"github.com/klabast/wb-services/waste-sensor/internal/app"
)

const testConfig = `
resources: [today, tomorrow, trash, green]
trash_day: 3
green_day: 4
green_week: odd
green_season_start: 4
green_season_end: 11
green_off_season_days: ["2018-12-07", "2019-01-05", "2019-02-01", "2019-03-01", "2019-03-29"]
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "waste.yaml")
	if err := os.WriteFile(path, []byte(testConfig), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

// run executes the command tree on Thursday 2018-11-22
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2018, 11, 22, 7, 0, 0, 0, time.UTC))
	cmd := newRootCmd(clock)

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", writeConfig(t)}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestQueryCommands(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "Next trash", args: []string{"next", "trash"}, want: "Waste Trash: 2018-11-22\n"},
		{name: "Next green", args: []string{"next", "green"}, want: "Waste Green: 2018-11-23\n"},
		{name: "Today", args: []string{"today"}, want: "Waste Today: Trash (2018-11-22)\n"},
		{name: "Tomorrow", args: []string{"tomorrow"}, want: "Waste Tomorrow: Green (2018-11-23)\n"},
		{name: "On trash day", args: []string{"on", "2018-11-15"}, want: "2018-11-15 trash\n"},
		{name: "On override day", args: []string{"on", "2019-03-01"}, want: "2019-03-01 green\n"},
		{name: "On free day", args: []string{"on", "2018-11-16"}, want: "2018-11-16 None\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			out, err := run(t, tt.args...)
			g.Expect(err).NotTo(HaveOccurred())
			g.Expect(out).To(Equal(tt.want))
		})
	}
}

func TestNextCommand_JSON(t *testing.T) {
	g := NewWithT(t)

	out, err := run(t, "next", "green", "--json")
	g.Expect(err).NotTo(HaveOccurred())

	var reading app.Reading
	g.Expect(json.Unmarshal([]byte(out), &reading)).To(Succeed())
	g.Expect(reading.Resource).To(Equal("green"))
	g.Expect(reading.Attributes).To(HaveKeyWithValue(app.AttrTrashType, "green"))
	g.Expect(reading.State).NotTo(BeNil())
	g.Expect(*reading.State).To(Equal("2018-11-23"))
}

func TestQueryCommands_Errors(t *testing.T) {
	g := NewWithT(t)

	_, err := run(t, "next", "paper")
	g.Expect(errors.Is(err, app.ErrUnknownResource)).To(BeTrue())

	_, err = run(t, "on", "22.11.2018")
	g.Expect(errors.Is(err, app.ErrInvalidDate)).To(BeTrue())

	cmd := newRootCmd(clockwork.NewFakeClock())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "today"})
	g.Expect(cmd.Execute()).To(MatchError(ContainSubstring("failed to read config")))
}

func TestExportCommand(t *testing.T) {
	g := NewWithT(t)

	out, err := run(t, "export", "--format", "csv", "--from", "2018-11-12", "--days", "28", "--types", "green")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(out).To(Equal("date,type,description\n" +
		"2018-11-23,green,Green collection\n" +
		"2018-12-07,green,Green collection\n"))
}

func TestExportCommand_ICSFile(t *testing.T) {
	g := NewWithT(t)
	path := filepath.Join(t.TempDir(), "waste.ics")

	out, err := run(t, "export", "--days", "7", "-o", path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(out).To(ContainSubstring("wrote 2 collections to " + path))

	data, err := os.ReadFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(data)).To(ContainSubstring("DTSTART;VALUE=DATE:20181122"))
	g.Expect(string(data)).To(ContainSubstring("DTSTART;VALUE=DATE:20181123"))
	g.Expect(string(data)).To(ContainSubstring("DTSTAMP:20181122T070000Z"))
}

func TestExportCommand_Invalid(t *testing.T) {
	g := NewWithT(t)

	_, err := run(t, "export", "--days", "0")
	g.Expect(err).To(MatchError(ContainSubstring("--days")))

	_, err = run(t, "export", "--format", "pdf")
	g.Expect(err).To(MatchError(ContainSubstring(app.ErrInvalidFormat)))
}

func TestWriteExport(t *testing.T) {
	g := NewWithT(t)
	events := []app.Event{{Date: "2018-11-22", Type: "trash", Description: "Trash collection"}}
	from := time.Date(2018, 11, 22, 0, 0, 0, 0, time.UTC)

	path := filepath.Join(t.TempDir(), "waste.csv")
	g.Expect(writeExport(path, app.FormatCSV, events, app.ICSOptions{}, from, 7, from)).To(Succeed())
	data, err := os.ReadFile(path)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(string(data)).To(Equal("date,type,description\n2018-11-22,trash,Trash collection\n"))

	missingDir := filepath.Join(t.TempDir(), "missing", "waste.csv")
	g.Expect(writeExport(missingDir, app.FormatCSV, events, app.ICSOptions{}, from, 7, from)).
		To(MatchError(ContainSubstring("failed to create")))

	err = writeExport(filepath.Join(t.TempDir(), "waste.pdf"), "pdf", events, app.ICSOptions{}, from, 7, from)
	g.Expect(err).To(MatchError(ContainSubstring(app.ErrInvalidFormat)))
}

func TestExportCommand_FileError(t *testing.T) {
	g := NewWithT(t)

	out, err := run(t, "export", "-o", filepath.Join(t.TempDir(), "missing", "waste.ics"))
	g.Expect(err).To(MatchError(ContainSubstring("failed to create")))
	g.Expect(out).NotTo(ContainSubstring("wrote"))
}

func TestVersionCommand(t *testing.T) {
	g := NewWithT(t)

	out, err := run(t, "version")
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(strings.HasPrefix(out, "waste-sensor "+Version)).To(BeTrue())
}
