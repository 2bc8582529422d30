package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/stashkv/stash"
)

// notFound is a sentinel default so get/pull can tell absence apart from
// a stored null.
var notFound = &struct{}{}

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Long:  "Sets the value for a key. The value is parsed as JSON when possible and stored as a plain string otherwise.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStash()
			if err != nil {
				return err
			}
			defer s.Close()

			ttl := stash.Forever
			if cmd.Flags().Changed("ttl") {
				n, _ := cmd.Flags().GetInt64("ttl")
				ttl = stash.Seconds(n)
			}
			if err := s.Set(context.Background(), args[0], parseValue(args[1]), ttl); err != nil {
				return err
			}
			fmt.Println("set successfully")
			return nil
		},
	}

	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStash()
			if err != nil {
				return err
			}
			defer s.Close()

			v, err := s.Get(context.Background(), args[0], notFound)
			if err != nil {
				return err
			}
			if v == notFound {
				fmt.Printf("key=%s, found=false\n", args[0])
				return nil
			}
			fmt.Printf("key=%s, found=true, value=%s\n", args[0], renderValue(v))
			return nil
		},
	}

	hasCmd = &cobra.Command{
		Use:   "has [key]",
		Short: "Checks whether a non-expired record exists for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStash()
			if err != nil {
				return err
			}
			defer s.Close()

			ok, err := s.Has(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, exists=%v\n", args[0], ok)
			return nil
		},
	}

	delCmd = &cobra.Command{
		Use:   "del [key]...",
		Short: "Deletes one or more keys",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStash()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.DeleteMultiple(context.Background(), args); err != nil {
				return err
			}
			fmt.Println("delete successfully")
			return nil
		},
	}

	pullCmd = &cobra.Command{
		Use:   "pull [key]",
		Short: "Atomically reads and deletes the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStash()
			if err != nil {
				return err
			}
			defer s.Close()

			v, err := s.Pull(context.Background(), args[0], notFound)
			if err != nil {
				return err
			}
			if v == notFound {
				fmt.Printf("key=%s, found=false\n", args[0])
				return nil
			}
			fmt.Printf("key=%s, found=true, value=%s\n", args[0], renderValue(v))
			return nil
		},
	}

	incrCmd = &cobra.Command{
		Use:   "incr [key] [by]",
		Short: "Atomically increments an integer counter",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  func(cmd *cobra.Command, args []string) error { return applyDelta(args, 1) },
	}

	decrCmd = &cobra.Command{
		Use:   "decr [key] [by]",
		Short: "Atomically decrements an integer counter",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  func(cmd *cobra.Command, args []string) error { return applyDelta(args, -1) },
	}

	keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Lists every non-expired key in the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStash()
			if err != nil {
				return err
			}
			defer s.Close()

			keys, err := s.Keys(context.Background())
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Println(k)
			}
			return nil
		},
	}

	clearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Removes every record in the table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStash()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Clear(context.Background()); err != nil {
				return err
			}
			fmt.Println("cleared")
			return nil
		},
	}

	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Removes every expired record and reports the count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStash()
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.CleanExpired(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("removed %d expired record(s)\n", n)
			return nil
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Shows record counts and on-disk size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStash()
			if err != nil {
				return err
			}
			defer s.Close()

			st, err := s.Stat(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("table:   %s\n", s.Table())
			fmt.Printf("file:    %s\n", s.Path())
			fmt.Printf("total:   %d\n", st.Total)
			fmt.Printf("active:  %d\n", st.Active)
			fmt.Printf("expired: %d\n", st.Expired)
			fmt.Printf("size:    %s\n", humanize.IBytes(uint64(st.SizeBytes)))
			return nil
		},
	}
)

func init() {
	setCmd.Flags().Int64("ttl", 0, "time to live in seconds (omit for no expiry, 0 expires immediately)")
}

func applyDelta(args []string, sign int64) error {
	by := int64(1)
	if len(args) == 2 {
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("by must be an integer: %w", err)
		}
		by = n
	}

	s, err := openStash()
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.Increment(context.Background(), args[0], sign*by)
	if err != nil {
		return err
	}
	fmt.Printf("key=%s, value=%d\n", args[0], v)
	return nil
}

// parseValue treats the argument as JSON when it parses, and as a plain
// string otherwise, so `stash set n 42` stores a number and
// `stash set greeting hello` stores a string.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func renderValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
