package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alfredjeanlab/eventrelay/internal/drain"
	"github.com/alfredjeanlab/eventrelay/internal/events"
	"github.com/alfredjeanlab/eventrelay/internal/model"
	"github.com/alfredjeanlab/eventrelay/internal/ui"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printPublishResult(w io.Writer, msg string, s model.Student) error {
	if jsonOutput {
		out := map[string]any{"message": msg}
		if s.StudentID != "" {
			out["student"] = s
		}
		return printJSON(w, out)
	}
	if s.StudentID != "" {
		fmt.Fprintf(w, "%s %s\n", ui.RenderAccent(s.StudentID), ui.RenderMuted(s.FullName()))
	}
	_, err := fmt.Fprintln(w, ui.RenderOK(msg))
	return err
}

func printHealth(w io.Writer, target, status string) error {
	if jsonOutput {
		return printJSON(w, map[string]string{"target": target, "status": status})
	}
	_, err := fmt.Fprintf(w, "Health (%s): %s\n", target, ui.RenderStatus(status))
	return err
}

func printDrainResult(w io.Writer, res drain.Result) error {
	if jsonOutput {
		return printJSON(w, res)
	}
	if res.Received == 0 {
		_, err := fmt.Fprintln(w, ui.RenderMuted("No new events in the queue."))
		return err
	}
	_, err := fmt.Fprintf(w, "Received:      %d\nProcessed:     %d\nDeleted:       %d\nDuplicates:    %d\nDecode errors: %d\nQuarantined:   %d\n",
		res.Received, res.Processed, res.Deleted, res.Duplicates, res.DecodeErrors, res.Quarantined)
	return err
}

// printEvent prints one fan-out message. JSON mode passes the payload
// through unchanged, one object per line.
func printEvent(w io.Writer, msg events.Message, at time.Time) error {
	if jsonOutput {
		_, err := fmt.Fprintln(w, string(msg.Data))
		return err
	}
	_, err := fmt.Fprintf(w, "%s %s %s\n",
		ui.RenderMuted(at.Format("15:04:05")),
		ui.RenderAccent(msg.Topic),
		summarizeEvent(msg))
	return err
}

// summarizeEvent renders the known payloads in one line; anything else is
// printed raw.
func summarizeEvent(msg events.Message) string {
	var (
		processed events.StudentProcessed
		published events.StudentsPublished
		cycle     events.DrainCycle
	)
	switch {
	case strings.HasSuffix(msg.Topic, events.TopicStudentProcessed) && json.Unmarshal(msg.Data, &processed) == nil:
		return fmt.Sprintf("%s %s (%s)", processed.Student.StudentID, processed.Student.FullName(), processed.Student.DateOfBirth)
	case strings.HasSuffix(msg.Topic, events.TopicStudentsPublished) && json.Unmarshal(msg.Data, &published) == nil:
		return fmt.Sprintf("%d published to %s", published.Count, published.Bus)
	case strings.HasSuffix(msg.Topic, events.TopicDrainCycle) && json.Unmarshal(msg.Data, &cycle) == nil:
		s := fmt.Sprintf("received=%d processed=%d deleted=%d duplicates=%d decode_errors=%d quarantined=%d",
			cycle.Received, cycle.Processed, cycle.Deleted, cycle.Duplicates, cycle.DecodeErrors, cycle.Quarantined)
		if cycle.Error != "" {
			s += " " + ui.RenderFail("error="+cycle.Error)
		}
		return s
	default:
		return string(msg.Data)
	}
}
