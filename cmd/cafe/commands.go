package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/example/cafe-client/internal/apperr"
	"github.com/example/cafe-client/internal/command"
	"github.com/example/cafe-client/internal/domain/cart"
	"github.com/example/cafe-client/internal/domain/order"
	"github.com/example/cafe-client/internal/events"
	"github.com/example/cafe-client/internal/infrastructure/store"
	"github.com/example/cafe-client/internal/metrics"
	"github.com/example/cafe-client/internal/query"
	"github.com/example/cafe-client/internal/session"
	"github.com/spf13/cobra"
)

// cli carries the global flags and the app built from them.
type cli struct {
	root  *cobra.Command
	flags globalFlags
	app   *app
}

func newCLI() *cli {
	c := &cli{}
	c.root = c.newRootCmd()
	return c
}

// execute runs the command tree and closes the app on every exit path,
// including failed commands.
func (c *cli) execute(ctx context.Context) error {
	err := c.root.ExecuteContext(ctx)
	if c.app != nil {
		if closeErr := c.app.Close(); closeErr != nil {
			c.app.logger.Error("failed to close", "error", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}
	return err
}

func (c *cli) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "cafe",
		Short:         "Order from the cafe and run the order counter",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "path to a YAML config file (default ./cafe.yaml when present)")
	pf.StringVar(&c.flags.apiURL, "api-url", "", "backend base URL")
	pf.StringVar(&c.flags.storage, "storage", "", "storage backend: memory, file, badger, redis or postgres")
	pf.StringVar(&c.flags.logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(
		c.menuCmd(),
		c.cartCmd(),
		c.orderCmd(),
		c.sessionCmd(),
		c.adminCmd(),
	)
	return rootCmd
}

// --- Menu ---

func (c *cli) menuCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "menu [item-id]",
		Short: "Browse the menu, or show one item",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := c.app.query(nil)
			if len(args) == 1 {
				id, err := parsePositive(args[0], "menu item id")
				if err != nil {
					return err
				}
				item, err := q.MenuItem(cmd.Context(), id)
				if err != nil {
					return userError(err, "Failed to load menu item")
				}
				renderMenuItem(cmd.OutOrStdout(), item)
				return nil
			}
			view, err := q.Menu(cmd.Context(), category)
			if err != nil {
				return userError(err, query.MsgMenuFailed)
			}
			renderMenu(cmd.OutOrStdout(), view)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "All, Veg, Non-Veg or a menu category")
	return cmd
}

// --- Cart ---

func (c *cli) cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart for this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.loadCart(cmd.Context())
			if err != nil {
				return err
			}
			renderCart(cmd.OutOrStdout(), h.Cart())
			return nil
		},
	}

	var quantity int
	var size string
	addCmd := &cobra.Command{
		Use:   "add <menu-item-id>",
		Short: "Add a menu item to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositive(args[0], "menu item id")
			if err != nil {
				return err
			}
			h, err := c.loadCart(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("size") {
				if item, err := c.app.client.GetMenuItem(cmd.Context(), id); err == nil {
					size = item.DefaultSize()
				}
			}
			if err := h.AddToCart(cmd.Context(), command.AddToCart{MenuItemID: id, Quantity: quantity, Size: size}); err != nil {
				return userError(err, command.MsgAddFailed)
			}
			renderCart(cmd.OutOrStdout(), h.Cart())
			return nil
		},
	}
	addCmd.Flags().IntVarP(&quantity, "quantity", "q", 1, "how many to add")
	addCmd.Flags().StringVarP(&size, "size", "s", "", "size to order (defaults to regular when offered)")

	updateCmd := &cobra.Command{
		Use:   "update <line-id> <quantity>",
		Short: "Change the quantity of a cart line",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositive(args[0], "cart line id")
			if err != nil {
				return err
			}
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			h, err := c.loadCart(cmd.Context())
			if err != nil {
				return err
			}
			if err := h.UpdateCartItem(cmd.Context(), command.UpdateCartItem{ItemID: id, Quantity: qty}); err != nil {
				return userError(err, command.MsgUpdateFailed)
			}
			renderCart(cmd.OutOrStdout(), h.Cart())
			return nil
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <line-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositive(args[0], "cart line id")
			if err != nil {
				return err
			}
			h, err := c.loadCart(cmd.Context())
			if err != nil {
				return err
			}
			if err := h.RemoveFromCart(cmd.Context(), command.RemoveFromCart{ItemID: id}); err != nil {
				return userError(err, command.MsgRemoveFailed)
			}
			renderCart(cmd.OutOrStdout(), h.Cart())
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.loadCart(cmd.Context())
			if err != nil {
				return err
			}
			if err := h.ClearCart(cmd.Context()); err != nil {
				return userError(err, command.MsgClearFailed)
			}
			renderCart(cmd.OutOrStdout(), h.Cart())
			return nil
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the cart as other processes change the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			watcher, ok := c.app.kv.(store.Watcher)
			if !ok {
				return fmt.Errorf("storage backend %q cannot report changes; use the file backend", c.app.cfg.Storage.Backend)
			}
			h, err := c.loadCart(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			renderCart(out, h.Cart())
			defer c.app.bus.Subscribe(func(ctx context.Context, e events.Event) {
				if e.EventType == session.EventSessionRecovered {
					fmt.Fprintf(out, "Session changed to %s\n", e.AggregateID)
					return
				}
				renderCart(out, h.Cart())
			}, cart.EventCartUpdated, cart.EventCartCleared, session.EventSessionRecovered)()
			err = h.Follow(cmd.Context(), watcher)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.AddCommand(addCmd, updateCmd, removeCmd, clearCmd, watchCmd)
	return cmd
}

func (c *cli) loadCart(ctx context.Context) (*command.Handler, error) {
	h := c.app.cart()
	if err := h.Init(ctx); err != nil {
		return nil, userError(err, command.MsgLoadFailed)
	}
	return h, nil
}

// --- Orders ---

func (c *cli) orderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Place and track orders",
	}

	placeCmd := &cobra.Command{
		Use:   "place",
		Short: "Place an order for the current cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer c.app.notify(cmd.OutOrStdout())()
			h, err := c.loadCart(cmd.Context())
			if err != nil {
				return err
			}
			confirmation, err := h.PlaceOrder(cmd.Context())
			if err != nil {
				return userError(err, command.MsgOrderFailed)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s. Your order number is %d.\n", confirmation.Message, confirmation.Order.ID)
			return nil
		},
	}

	trackCmd := &cobra.Command{
		Use:   "track <order-id>",
		Short: "Show the status of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := c.app.query(nil).TrackOrder(cmd.Context(), args[0])
			if err != nil {
				return userError(err, query.MsgTrackFailed)
			}
			renderOrder(cmd.OutOrStdout(), *view)
			return nil
		},
	}

	cmd.AddCommand(placeCmd, trackCmd)
	return cmd
}

// --- Session ---

func (c *cli) sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := c.app.sessions.GetStoredSession(cmd.Context())
			expired := s != nil && c.app.sessions.IsSessionExpired(*s, c.app.cfg.Session.MaxInactive)
			renderSession(cmd.OutOrStdout(), s, expired)
			return nil
		},
	}

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Discard the stored session and start a new one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.app.sessions.ClearSession(cmd.Context())
			s := c.app.sessions.EnsureValidSession(cmd.Context())
			renderSession(cmd.OutOrStdout(), &s, false)
			return nil
		},
	}

	cmd.AddCommand(resetCmd)
	return cmd
}

// --- Admin ---

func (c *cli) adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Run the order counter",
	}

	var status string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List orders, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter order.Status
			if status != "" && status != "all" {
				s, err := order.ParseStatus(status)
				if err != nil {
					return err
				}
				filter = s
			}
			views, err := c.app.query(c.app.completions()).ListOrders(cmd.Context(), filter)
			if err != nil {
				return userError(err, query.MsgOrdersFailed)
			}
			renderOrderList(cmd.OutOrStdout(), views)
			return nil
		},
	}
	listCmd.Flags().StringVar(&status, "status", "all", "all, pending, completed or cancelled")

	completeCmd := &cobra.Command{
		Use:   "complete <order-id>",
		Short: "Mark a pending order ready for collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.transition(cmd, args[0], order.StatusCompleted)
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel a pending order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.transition(cmd, args[0], order.StatusCancelled)
		},
	}

	var metricsAddr string
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Auto-complete orders as they become ready",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			defer c.app.notify(cmd.OutOrStdout())()

			if metricsAddr == "" {
				metricsAddr = c.app.cfg.Metrics.Addr
			}
			if metricsAddr != "" {
				go func() {
					if err := metrics.Serve(ctx, metricsAddr, c.app.logger); err != nil {
						c.app.logger.Error("metrics server failed", "error", err)
					}
				}()
			}

			err := c.app.monitor(c.app.completions()).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9100")

	cmd.AddCommand(listCmd, completeCmd, cancelCmd, watchCmd)
	return cmd
}

func (c *cli) transition(cmd *cobra.Command, raw string, target order.Status) error {
	id, err := order.ParseID(raw)
	if err != nil {
		return err
	}
	defer c.app.notify(cmd.OutOrStdout())()

	m := c.app.monitor(c.app.completions())
	if err := m.Refresh(cmd.Context()); err != nil {
		return userError(err, query.MsgOrdersFailed)
	}

	var updated *order.Order
	if target == order.StatusCompleted {
		updated, err = m.Complete(cmd.Context(), id)
	} else {
		updated, err = m.Cancel(cmd.Context(), id)
	}
	if err != nil {
		return userError(err, fmt.Sprintf("Failed to update order #%d", id))
	}

	label := string(updated.Status)
	if updated.Status == order.StatusCompleted {
		label = "ready for collection"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Order #%d has been marked as %s.\n", updated.ID, label)
	return nil
}

// userError replaces err with the message a customer should see.
func userError(err error, fallback string) error {
	return errors.New(apperr.Message(err, fallback))
}

func parsePositive(raw, what string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, raw)
	}
	return id, nil
}
