package console

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/oshokin/playdate-sdk-updater/internal/remote"
)

const (
	// barWidth is the number of cells of the progress bar.
	barWidth = 50
	// milestoneStep is the percentage between progress lines on a non-terminal.
	milestoneStep = 10
	// redrawInterval throttles in-place redraws on a terminal.
	redrawInterval = 100 * time.Millisecond

	percentMultiple = 100

	// byteStep is the amount between progress lines when the length is
	// unknown and output is not a terminal.
	byteStep = 10 << 20
)

var (
	titleStyle   = color.New(color.FgYellow, color.Bold, color.Underline)
	versionStyle = color.New(color.FgGreen)
	stepStyle    = color.New(color.Underline)
	successStyle = color.New(color.FgGreen)
	failureStyle = color.New(color.FgRed, color.Bold)
	hintStyle    = color.New(color.FgHiGreen, color.BgBlack)
	filledStyle  = color.New(color.FgGreen)
	emptyStyle   = color.New(color.Faint)
)

// Console writes human-facing output.
type Console struct {
	out         io.Writer
	interactive bool

	lastMilestone int64
	lastReported  int64
	received      int64
	lastDraw      time.Time
	drawn         bool
}

// New creates a Console writing to out. Progress is redrawn in place only
// when out is a terminal.
func New(out io.Writer) *Console {
	interactive := false
	if file, ok := out.(*os.File); ok {
		interactive = term.IsTerminal(int(file.Fd()))
	}

	return &Console{
		out:         out,
		interactive: interactive,
	}
}

// Stdout returns a Console bound to os.Stdout.
func Stdout() *Console {
	return New(os.Stdout)
}

// Banner prints the program title.
func (c *Console) Banner(updaterVersion string) {
	_, _ = fmt.Fprintf(c.out, "%s v.%s\n", titleStyle.Sprint("PLAYDATE SDK UPDATER"), versionStyle.Sprint(updaterVersion))
	_, _ = fmt.Fprintf(c.out, "(Unofficial tool, %s with Panic Inc.)\n", color.New(color.Bold).Sprint("NOT affiliated"))
}

// Step prints a numbered step header.
func (c *Console) Step(number int, title string) {
	_, _ = fmt.Fprintln(c.out, stepStyle.Sprintf("%d. %s", number, title))
}

// Println prints a plain line.
func (c *Console) Println(args ...any) {
	_, _ = fmt.Fprintln(c.out, args...)
}

// Success prints a green line.
func (c *Console) Success(message string) {
	_, _ = fmt.Fprintln(c.out, successStyle.Sprint(message))
}

// Failure prints a bold red line.
func (c *Console) Failure(message string) {
	_, _ = fmt.Fprintln(c.out, failureStyle.Sprint(message))
}

// Hint prints a command or value the operator is expected to copy.
func (c *Console) Hint(message string) {
	_, _ = fmt.Fprintf(c.out, "  %s\n", hintStyle.Sprint(message))
}

// Progress renders download progress; its signature matches remote.ProgressFunc.
func (c *Console) Progress(received, total int64) {
	if total <= remote.UnknownContentLength {
		c.progressUnknown(received)

		return
	}

	percent := received * percentMultiple / total
	if percent > percentMultiple {
		percent = percentMultiple
	}

	if !c.interactive {
		if percent >= c.lastMilestone+milestoneStep || (percent == percentMultiple && c.lastMilestone < percentMultiple) {
			c.lastMilestone = percent - percent%milestoneStep
			_, _ = fmt.Fprintf(c.out, "Downloading %3d%% (%s / %s)\n",
				percent, humanize.Bytes(uint64(received)), humanize.Bytes(uint64(total)))
		}

		return
	}

	if !c.shouldRedraw(percent == percentMultiple) {
		return
	}

	filled := int(percent) * barWidth / percentMultiple
	bar := filledStyle.Sprint(strings.Repeat("#", filled)) + emptyStyle.Sprint(strings.Repeat("_", barWidth-filled))

	_, _ = fmt.Fprintf(c.out, "\r%s [%s] %3d%% (%s / %s)",
		color.CyanString("Downloading"), bar, percent,
		humanize.Bytes(uint64(received)), humanize.Bytes(uint64(total)))
}

// FinishProgress ends an in-place progress line.
func (c *Console) FinishProgress() {
	if c.interactive && c.drawn {
		_, _ = fmt.Fprintln(c.out)
	}

	if !c.interactive && c.received > c.lastReported {
		_, _ = fmt.Fprintf(c.out, "Downloaded %s\n", humanize.Bytes(uint64(c.received)))
	}

	c.drawn = false
	c.lastMilestone = 0
	c.lastReported = 0
	c.received = 0
}

// progressUnknown shows a running byte count: redrawn in place on a
// terminal, one line per byteStep otherwise.
func (c *Console) progressUnknown(received int64) {
	if !c.interactive {
		c.received = received

		if received-c.lastReported >= byteStep {
			c.lastReported = received - received%byteStep
			_, _ = fmt.Fprintf(c.out, "Downloading %s\n", humanize.Bytes(uint64(received)))
		}

		return
	}

	if !c.shouldRedraw(false) {
		return
	}

	_, _ = fmt.Fprintf(c.out, "\r%s %s", color.CyanString("Downloading"), humanize.Bytes(uint64(received)))
}

func (c *Console) shouldRedraw(force bool) bool {
	now := time.Now()
	if !force && c.drawn && now.Sub(c.lastDraw) < redrawInterval {
		return false
	}

	c.lastDraw = now
	c.drawn = true

	return true
}
