package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/maauso/motionphoto/internal/convert"
)

type command struct {
	name    string
	args    string
	summary string
	nargs   int
	upload  bool
	run     func(ctx context.Context, svc *convert.Service, args []string, opts options, stdout io.Writer) error
}

var commands = []command{
	{
		name:    "combine",
		args:    "<still.jpg> <video.mov> <output.jpg>",
		summary: "embed a video clip into a still image as a motion photo",
		nargs:   3,
		upload:  true,
		run:     runCombine,
	},
	{
		name:    "extract",
		args:    "<motion.jpg> <output-prefix>",
		summary: "split a motion photo into <prefix>.jpg and <prefix>.mov",
		nargs:   2,
		upload:  true,
		run:     runExtract,
	},
	{
		name:    "inspect",
		args:    "<motion.jpg>",
		summary: "report the still/video layout of a motion photo",
		nargs:   1,
		run:     runInspect,
	},
}

// aliases keep the direction-named commands of earlier releases working.
var aliases = []struct{ alias, name string }{
	{"ios2android", "combine"},
	{"android2ios", "extract"},
}

func lookupCommand(name string) (command, bool) {
	for _, a := range aliases {
		if a.alias == name {
			name = a.name
			break
		}
	}
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func runCombine(ctx context.Context, svc *convert.Service, args []string, opts options, stdout io.Writer) error {
	res, err := svc.Combine(ctx, convert.CombineRequest{
		StillPath:  args[0],
		VideoPath:  args[1],
		OutputPath: args[2],
		Upload:     opts.upload,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s (%s, video at offset %d)\n",
		res.OutputPath, humanize.Bytes(uint64(res.ImageLen+res.VideoLen)), res.Offset)
	if res.URL != "" {
		fmt.Fprintln(stdout, res.URL)
	}
	return nil
}

func runExtract(ctx context.Context, svc *convert.Service, args []string, opts options, stdout io.Writer) error {
	res, err := svc.Extract(ctx, convert.ExtractRequest{
		CombinedPath: args[0],
		OutputPrefix: args[1],
		Upload:       opts.upload,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, res.ImagePath)
	fmt.Fprintln(stdout, res.VideoPath)
	for _, u := range []string{res.ImageURL, res.VideoURL} {
		if u != "" {
			fmt.Fprintln(stdout, u)
		}
	}
	return nil
}

func runInspect(ctx context.Context, svc *convert.Service, args []string, opts options, stdout io.Writer) error {
	res, err := svc.Inspect(ctx, args[0])
	if err != nil {
		return err
	}
	if opts.json {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	fmt.Fprintf(stdout, "file:      %s (%s)\n", res.Path, humanize.Bytes(uint64(res.Size)))
	fmt.Fprintf(stdout, "image:     %d bytes\n", res.ImageLen)
	fmt.Fprintf(stdout, "video:     %d bytes\n", res.VideoLen)
	fmt.Fprintf(stdout, "boundary:  %s\n", res.Boundary)
	switch {
	case !res.HasPacket:
		fmt.Fprintln(stdout, "offset:    none")
	case res.OffsetMatches:
		fmt.Fprintf(stdout, "offset:    %d\n", res.Offset)
	default:
		fmt.Fprintf(stdout, "offset:    %d (does not match boundary)\n", res.Offset)
	}
	return nil
}
