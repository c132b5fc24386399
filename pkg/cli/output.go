package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

// Color functions for terminal output
var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
)

// Success prints a success message in green
func Success(msg string) {
	successColor.Println(msg)
}

// Error prints an error message in red
func Error(msg string) {
	errorColor.Println(msg)
}

// Warning prints a warning message in yellow
func Warning(msg string) {
	warningColor.Println(msg)
}

// Info prints an info message in cyan
func Info(msg string) {
	infoColor.Println(msg)
}

// PrintFields prints a two-column field/value listing without borders
func PrintFields(rows [][]string) {
	table := newTable()
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

// PrintTable prints data in table format
func PrintTable(headers []string, rows [][]string) {
	table := newTable()
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}
