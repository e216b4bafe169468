package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"shortcircuit/internal/graph"
	"shortcircuit/internal/logger"
	"shortcircuit/internal/navigation"
)

var (
	routeAvoid      []string
	routeSizes      []string
	routeIgnoreEOL  bool
	routeIgnoreMass bool
	routeMaxAge     float64
	routeSafest     bool
	routeRefresh    bool
	routeJSON       bool
)

var routeCmd = &cobra.Command{
	Use:   "route <source> <destination>",
	Short: "Find a route between two systems",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if routeJSON {
			// keep log lines out of the JSON document
			logger.SetOutput(os.Stderr)
			defer logger.SetOutput(nil)
		}
		nav, err := loadNavigator(cfg)
		if err != nil {
			return err
		}
		if routeRefresh {
			nav.Refresh(cmd.Context())
		}

		restrictions := graph.Restrictions{
			Sizes:          graph.AllSizes,
			IgnoreEOL:      routeIgnoreEOL,
			IgnoreMassCrit: routeIgnoreMass,
			AgeThreshold:   routeMaxAge,
		}
		if cmd.Flags().Changed("sizes") {
			var sizes []graph.Size
			for _, name := range routeSizes {
				sz, ok := graph.ParseSize(name)
				if !ok {
					return fmt.Errorf("unknown size %q", name)
				}
				sizes = append(sizes, sz)
			}
			restrictions.Sizes = graph.NewSizeSet(sizes...)
		}
		req := navigation.Request{Source: args[0], Destination: args[1], Avoid: routeAvoid, Restrictions: restrictions}

		var route *navigation.Route
		if routeSafest {
			route, err = nav.RouteWeighted(req, cfg.Risk)
		} else {
			route, err = nav.Route(req)
		}
		if err != nil {
			return err
		}

		if routeJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(route)
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tSYSTEM\tCLASS\tSEC\tINSTRUCTIONS\tINFO")
		for i, h := range route.Hops {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%s\t%s\n", i, h.Name, h.Class, h.Security, h.Instructions, h.Info)
		}
		tw.Flush()
		fmt.Fprintf(out, "\n%s\n%d jumps (%d wormholes)\n", route.Short, route.Jumps, route.Wormholes)
		return nil
	},
}

func init() {
	routeCmd.Flags().StringSliceVar(&routeAvoid, "avoid", nil, "systems to avoid (comma separated)")
	routeCmd.Flags().StringSliceVar(&routeSizes, "sizes", nil, "allowed wormhole sizes (small,medium,large,xlarge)")
	routeCmd.Flags().BoolVar(&routeIgnoreEOL, "no-eol", false, "skip end-of-life wormholes")
	routeCmd.Flags().BoolVar(&routeIgnoreMass, "no-masscrit", false, "skip mass-critical wormholes")
	routeCmd.Flags().Float64Var(&routeMaxAge, "max-age", 0, "skip wormholes not updated within this many hours (0 = any)")
	routeCmd.Flags().BoolVar(&routeSafest, "safest", false, "minimize risk instead of jumps")
	routeCmd.Flags().BoolVar(&routeRefresh, "refresh", true, "fetch wormhole feeds before routing")
	routeCmd.Flags().BoolVar(&routeJSON, "json", false, "output as JSON")
}
