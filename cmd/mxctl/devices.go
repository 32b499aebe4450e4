package main

import (
	"os"
	"strconv"

	"github.com/justinsb/mxnet-go/pkg/mx"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func newDevicesCommand(opt *options) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices and their memory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := klog.FromContext(cmd.Context())

			rt, err := opt.newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			n, err := rt.NumGPUs()
			if err != nil {
				return err
			}

			data := [][]string{{mx.CPU().String(), "-", "-"}}
			for id := 0; id < n; id++ {
				free, total, err := rt.GPUMemoryInfo(id)
				if err != nil {
					log.Error(err, "getting GPU memory", "device", id)
					data = append(data, []string{mx.GPU(id).String(), "?", "?"})
					continue
				}
				data = append(data, []string{mx.GPU(id).String(), formatBytes(free), formatBytes(total)})
			}

			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"DEVICE", "FREE", "TOTAL"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()
			return nil
		},
	}
}

func formatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatUint(n, 10) + " B"
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(n)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
