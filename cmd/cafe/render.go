package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/example/cafe-client/internal/domain/cart"
	"github.com/example/cafe-client/internal/domain/menu"
	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/query"
	"github.com/example/cafe-client/internal/session"
)

var (
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cancelledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headingStyle   = lipgloss.NewStyle().Bold(true)
)

func statusText(status order.Status) string {
	label := status.Label()
	switch status {
	case order.StatusPending:
		return pendingStyle.Render(label)
	case order.StatusCompleted:
		return completedStyle.Render(label)
	case order.StatusCancelled:
		return cancelledStyle.Render(label)
	default:
		return mutedStyle.Render(label)
	}
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}

func renderMenu(w io.Writer, view *query.MenuView) {
	fmt.Fprintln(w, headingStyle.Render("Menu: "+view.Category))
	fmt.Fprintln(w, mutedStyle.Render("Categories: "+strings.Join(view.Categories, ", ")))
	if len(view.Items) == 0 {
		fmt.Fprintln(w, "No items in this category.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSIZES")
	for _, item := range view.Items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", item.ID, item.Name, money(item.Price), sizeList(item))
	}
	tw.Flush()
}

func renderMenuItem(w io.Writer, item *menu.Item) {
	fmt.Fprintln(w, headingStyle.Render(item.Name))
	if item.Description != "" {
		fmt.Fprintln(w, item.Description)
	}
	fmt.Fprintf(w, "Price: %s\n", money(item.Price))
	if item.HasSizes() {
		tw := newTable(w)
		for _, size := range item.Sizes() {
			marker := ""
			if size == item.DefaultSize() {
				marker = "(default)"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", size, money(item.PriceFor(size)), marker)
		}
		tw.Flush()
	}
}

func sizeList(item menu.Item) string {
	if !item.HasSizes() {
		return "-"
	}
	parts := make([]string, 0, len(item.SizePrices))
	for _, size := range item.Sizes() {
		parts = append(parts, fmt.Sprintf("%s %s", size, money(item.PriceFor(size))))
	}
	return strings.Join(parts, ", ")
}

func renderCart(w io.Writer, summary *cart.Summary) {
	if summary.IsEmpty() {
		fmt.Fprintln(w, "Your cart is empty.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "LINE\tITEM\tSIZE\tQTY\tPRICE\tTOTAL")
	for _, item := range summary.Cart.Items {
		name := item.MenuItem.Name
		if name == "" {
			name = fmt.Sprintf("Item #%d", item.MenuItemID)
		}
		size := item.Size()
		if size == "" {
			size = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			item.ID, name, size, item.Quantity, money(item.ItemPrice), money(item.LineTotal()))
	}
	tw.Flush()
	fmt.Fprintf(w, "%d items, total %s\n", summary.TotalItems, money(summary.DisplayTotal()))
}

func renderOrder(w io.Writer, v query.OrderView) {
	fmt.Fprintf(w, "%s  %s\n", headingStyle.Render(fmt.Sprintf("Order #%d", v.ID)), statusText(v.Status))
	fmt.Fprintf(w, "Placed: %s\n", v.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	tw := newTable(w)
	for _, line := range v.Lines {
		size := line.Size
		if size == "" {
			size = "-"
		}
		fmt.Fprintf(tw, "  %s\t%s\tx%d\t%s\n", line.Name, size, line.Quantity, money(line.LineTotal))
	}
	tw.Flush()
	fmt.Fprintf(w, "Total: %s (%d items)\n", money(v.TotalAmount), v.TotalItems)
	if v.TimeRemaining != "" {
		fmt.Fprintln(w, mutedStyle.Render(v.TimeRemaining))
	}
}

func renderOrderList(w io.Writer, views []query.OrderView) {
	if len(views) == 0 {
		fmt.Fprintln(w, "No orders.")
		return
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ORDER\tSTATUS\tITEMS\tTOTAL\tPLACED\tNOTE")
	for _, v := range views {
		note := v.TimeRemaining
		if note == "" {
			note = v.Collection
		}
		fmt.Fprintf(tw, "#%d\t%s\t%d\t%s\t%s\t%s\n",
			v.ID, statusText(v.Status), v.TotalItems, money(v.TotalAmount),
			v.CreatedAt.Local().Format("15:04:05"), note)
	}
	tw.Flush()
}

func renderSession(w io.Writer, s *session.Session, expired bool) {
	if s == nil {
		fmt.Fprintln(w, "No stored session.")
		return
	}
	fmt.Fprintf(w, "Session:       %s\n", s.ID)
	fmt.Fprintf(w, "Created:       %s\n", s.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Last activity: %s\n", s.LastActivity.Local().Format("2006-01-02 15:04:05"))
	if expired {
		fmt.Fprintln(w, mutedStyle.Render("expired; a new session is created on next use"))
	}
}
