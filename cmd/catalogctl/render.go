package main

import (
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/app/services"
)

// renderTree prints one row per note, with empty branches shown as rows of
// their own so nothing in the catalog is hidden.
func renderTree(w io.Writer, degrees []*models.Degree) {
	if len(degrees) == 0 {
		color.New(color.FgYellow).Fprintln(w, "Catalog is empty")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Degree", "Semester", "Subject", "Note", "Author", "PDF"})
	table.SetAutoMergeCells(true)
	table.SetRowLine(true)

	for _, degree := range degrees {
		dName := string(degree.Name)
		if len(degree.Semesters) == 0 {
			table.Append([]string{dName, "", "", "", "", ""})
			continue
		}
		for _, semester := range degree.Semesters {
			sName := strconv.Itoa(semester.Number) + ". " + semester.Name
			if len(semester.Subjects) == 0 {
				table.Append([]string{dName, sName, "", "", "", ""})
				continue
			}
			for _, subject := range semester.Subjects {
				subName := subject.Name
				if subject.Code != "" {
					subName = subject.Code + " " + subName
				}
				if len(subject.Notes) == 0 {
					table.Append([]string{dName, sName, subName, "", "", ""})
					continue
				}
				for _, note := range subject.Notes {
					table.Append([]string{dName, sName, subName, note.Title, note.Author, note.BlobPath})
				}
			}
		}
	}
	table.Render()
}

// renderReport prints what a reconcile sweep found.
func renderReport(w io.Writer, report *services.ReconcileReport) {
	if report.Changes() == 0 && len(report.MissingBlobs) == 0 {
		color.New(color.FgGreen).Fprintln(w, "Catalog is consistent")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Finding", "Kind", "ID", "Detail"})

	for _, ref := range report.OrphanRecords {
		table.Append([]string{"orphan record", ref.Kind.String(), ref.ID, "parent " + ref.ParentID + " missing"})
	}
	for _, ref := range report.Relinked {
		table.Append([]string{"unlisted record", ref.Kind.String(), ref.ID, "parent " + ref.ParentID})
	}
	for _, link := range report.DanglingLinks {
		table.Append([]string{"dangling link", link.ParentKind.String(), link.ParentID, "child " + link.ChildID})
	}
	for _, blob := range report.OrphanBlobs {
		table.Append([]string{"orphan blob", "", "", blob})
	}
	for _, ref := range report.MissingBlobs {
		table.Append([]string{"missing blob", ref.Kind.String(), ref.ID, ref.BlobPath})
	}
	table.Render()

	if report.DryRun {
		color.New(color.FgYellow).Fprintf(w, "Dry run: %d change(s) pending\n", report.Changes())
		return
	}
	color.New(color.FgGreen).Fprintf(w, "Applied %d change(s)\n", report.Changes())
}

// renderCascade prints per-kind counts of a cascading delete.
func renderCascade(w io.Writer, result *services.CascadeResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kind", "Deleted"})
	for _, kind := range models.Kinds {
		if n := result.Records[kind]; n > 0 {
			table.Append([]string{kind.String(), strconv.Itoa(n)})
		}
	}
	table.Append([]string{"pdf files", strconv.Itoa(result.Blobs)})
	table.Render()

	if result.MissingBlobs > 0 || result.MissingRecords > 0 {
		color.New(color.FgYellow).Fprintf(w, "Skipped %d missing file(s) and %d missing record(s)\n",
			result.MissingBlobs, result.MissingRecords)
	}
	color.New(color.FgGreen).Fprintf(w, "Deleted %s %s\n", result.Kind, result.ID)
}
