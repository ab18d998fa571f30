package main

import (
	"encoding/json"
	"event-bridge/internal"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func main() {
	addr := flag.String("addr", "http://localhost:6060", "Debug server of a running bridge")
	noColour := flag.Bool("no-colour", false, "Disable colours")
	flag.Parse()

	data, err := fetch(*addr + "/history.json")
	if err != nil {
		log.Fatal("Error while reading bridge history: ", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Seq", "Time", "Topic", "Sender", "Target", "Payload"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	gapped := make(map[string]map[uint64]bool)
	for _, gap := range data.Gaps {
		sender := gap.SenderID
		if sender == "" {
			sender = "agent"
		}
		if gapped[sender] == nil {
			gapped[sender] = make(map[uint64]bool)
		}
		gapped[sender][gap.Got] = true
	}

	for _, row := range data.Items {
		seq := strconv.FormatUint(row.Sequence, 10)
		// Envelopes that arrived after a gap are highlighted
		if gapped[row.Sender][row.Sequence] && !*noColour {
			seq = color.FgYellow.Render(seq + " !")
		}
		target := row.Target
		if target != "" && !*noColour {
			target = color.FgCyan.Render(target)
		}
		table.Append([]string{seq, row.Timestamp, row.Topic, row.Sender, target, row.Detail})
	}
	table.Render()

	fmt.Printf("\n%d envelopes, %d gaps\n", len(data.Items), len(data.Gaps))
	keys := make([]string, 0, len(data.Stats))
	for k := range data.Stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-16s %v\n", k, data.Stats[k])
	}
}

func fetch(url string) (internal.PageData, error) {
	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return internal.PageData{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return internal.PageData{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var data internal.PageData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return internal.PageData{}, fmt.Errorf("decoding history: %w", err)
	}
	return data, nil
}
