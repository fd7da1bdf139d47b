package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/linerec/linerec/format"
	"github.com/linerec/linerec/model"
	"github.com/linerec/linerec/model/linecnn"
	"github.com/linerec/linerec/model/linecnntransformer"
)

func InfoHandler(cmd *cobra.Command, args []string) error {
	m, err := loadModel(cmd)
	if err != nil {
		return err
	}

	out := os.Stdout
	prettyPrintModel(out, m)

	return nil
}

func prettyPrintModel(out io.Writer, m model.Model) {
	table := tablewriter.NewWriter(out)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding(" ")
	indent := " "

	c := m.Backend().Config()
	width := int(c.Uint("image.width"))
	height := int(c.Uint("image.height"))

	data := [][]string{
		{indent, "Architecture:", c.Architecture()},
		{indent, "Image size:", fmt.Sprintf("%dx%d", width, height)},
		{indent, "Vocabulary:", strconv.Itoa(len(c.Strings("vocabulary.tokens", model.DefaultMapping())))},
		{indent, "Parameters:", format.HumanNumber(uint64(model.NumParameters(m)))},
	}

	switch m := m.(type) {
	case *linecnn.Model:
		windowWidth, windowStride := m.WindowGeometry()
		data = append(data,
			[]string{indent, "Sequence length:", strconv.Itoa(m.SequenceLength(width))},
			[]string{indent, "Window:", fmt.Sprintf("%dpx / stride %d", windowWidth, windowStride)},
		)
	case *linecnntransformer.Model:
		data = append(data,
			[]string{indent, "Encoder length:", strconv.Itoa(m.Encoder.SequenceLength(width))},
			[]string{indent, "Decoder dim:", strconv.Itoa(m.Dim())},
			[]string{indent, "Output length:", strconv.Itoa(m.MaxOutputLength())},
		)
	}

	fmt.Fprint(out, "Model:\n")
	table.AppendBulk(data)
	table.Render()
}
