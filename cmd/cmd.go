// Package cmd implements the linerec command line interface.
package cmd

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/linerec/linerec/convert"
	"github.com/linerec/linerec/fs"
	"github.com/linerec/linerec/logutil"
	"github.com/linerec/linerec/ml"
	"github.com/linerec/linerec/model"
	"github.com/linerec/linerec/model/imageproc"
	"github.com/linerec/linerec/sample"
)

func NewCLI() *cobra.Command {
	slog.SetDefault(logutil.NewLogger(os.Stderr, logutil.Level()))

	rootCmd := &cobra.Command{
		Use:   "linerec",
		Short: "Handwritten text line recognizer",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SilenceUsage = true
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.String("arch", "linecnn-transformer", "Model architecture (linecnn or linecnn-transformer)")
	pf.String("checkpoint", "", "Directory holding trained weights to load")
	pf.Int("width", 1024, "Line image width in pixels")
	pf.Int("height", 64, "Line image height in pixels")
	pf.Int("output-length", 64, "Maximum output sequence length")
	pf.Uint64("seed", 0, "Seed for weight initialization and sampling")

	recognizeCmd := &cobra.Command{
		Use:   "recognize IMAGE...",
		Short: "Transcribe line images to text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RecognizeHandler,
	}
	recognizeCmd.Flags().Float64("temperature", 0, "Sample with this temperature instead of greedy decoding")
	recognizeCmd.Flags().Int("top-k", 0, "Restrict sampling to the k most likely tokens")

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show model architecture and parameters",
		Args:  cobra.ExactArgs(0),
		RunE:  InfoHandler,
	}

	cobra.EnableCommandSorting = false
	rootCmd.AddCommand(
		recognizeCmd,
		infoCmd,
	)

	return rootCmd
}

func configFromFlags(cmd *cobra.Command) (fs.Config, error) {
	flags := cmd.Flags()

	arch, _ := flags.GetString("arch")
	width, _ := flags.GetInt("width")
	height, _ := flags.GetInt("height")
	length, _ := flags.GetInt("output-length")
	seed, _ := flags.GetUint64("seed")

	if width < 1 || height < 1 || length < 1 {
		return nil, fmt.Errorf("invalid geometry %dx%d with output length %d", width, height, length)
	}

	return fs.KV{
		"general.architecture": arch,
		"image.width":          uint32(width),
		"image.height":         uint32(height),
		"output_length":        uint32(length),
		"seed":                 uint32(seed),
	}, nil
}

// loadModel builds the configured model and, when a checkpoint
// directory is given, replaces its initialized weights with the trained
// ones.
func loadModel(cmd *cobra.Command) (model.Model, error) {
	c, err := configFromFlags(cmd)
	if err != nil {
		return nil, err
	}

	backend, err := ml.NewBackend(c)
	if err != nil {
		return nil, err
	}

	m, err := model.New(backend)
	if err != nil {
		return nil, err
	}

	if dir, _ := cmd.Flags().GetString("checkpoint"); dir != "" {
		ts, err := convert.Convert(dir)
		if err != nil {
			return nil, err
		}

		ctx := backend.NewContext()
		defer ctx.Close()

		if err := model.LoadTensors(ctx, m, ts); err != nil {
			return nil, err
		}
		slog.Info("loaded checkpoint", "dir", dir, "tensors", len(ts))
	}

	return m, nil
}

// generator is implemented by models that support pluggable sampling.
type generator interface {
	Generate(ml.Context, ml.Tensor, sample.Sampler) (ml.Tensor, error)
}

// transformSampler pins a transform chain onto every Sample call.
type transformSampler struct {
	sampler    sample.Sampler
	transforms []sample.Transform
}

func (s transformSampler) Sample(logits []float32, _ ...sample.Transform) (int, error) {
	return s.sampler.Sample(logits, s.transforms...)
}

func RecognizeHandler(cmd *cobra.Command, args []string) error {
	m, err := loadModel(cmd)
	if err != nil {
		return err
	}

	c := m.Backend().Config()
	width := int(c.Uint("image.width"))
	height := int(c.Uint("image.height"))
	length := int(c.Uint("output_length"))
	seed := uint64(c.Uint("seed"))

	stem := imageproc.NewLineStem(width, height, max(1, width/length), false, seed)

	// decode and preprocess in parallel; inference itself is sequential
	pix := make([][]float32, len(args))
	g, _ := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.NumCPU())
	for i, p := range args {
		g.Go(func() error {
			f, err := os.Open(p)
			if err != nil {
				return err
			}
			defer f.Close()

			img, _, err := image.Decode(f)
			if err != nil {
				return fmt.Errorf("decode %s: %w", p, err)
			}

			pix[i] = stem.Apply(img)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	vals := make([]float32, 0, len(args)*width*height)
	for _, p := range pix {
		vals = append(vals, p...)
	}

	ctx := m.Backend().NewContext()
	defer ctx.Close()

	batch, err := ctx.FromFloatSlice(vals, width, height, 1, len(args))
	if err != nil {
		return err
	}

	out, err := forward(cmd, ctx, m, batch)
	if err != nil {
		return err
	}

	// token matrix [S, B]: class logits pass through an argmax readout
	if out.DType() != ml.DTypeI32 {
		out = out.Argmax(ctx)
	}

	vocab, err := model.NewVocabulary(c.Strings("vocabulary.tokens", model.DefaultMapping()))
	if err != nil {
		return err
	}

	s := out.Dim(0)
	tokens := out.Ints()
	for i, p := range args {
		fmt.Printf("%s: %s\n", p, vocab.Decode(tokens[i*s:(i+1)*s]))
	}

	return nil
}

func forward(cmd *cobra.Command, ctx ml.Context, m model.Model, batch ml.Tensor) (ml.Tensor, error) {
	temperature, _ := cmd.Flags().GetFloat64("temperature")
	topK, _ := cmd.Flags().GetInt("top-k")

	gen, ok := m.(generator)
	if !ok || temperature == 0 {
		return m.Forward(ctx, batch)
	}

	var transforms []sample.Transform
	if topK > 0 {
		transforms = append(transforms, sample.TopK(topK))
	}
	transforms = append(transforms, sample.Temperature(temperature))

	seed := int64(m.Backend().Config().Uint("seed"))
	return gen.Generate(ctx, batch, transformSampler{
		sampler:    sample.Weighted(&seed),
		transforms: transforms,
	})
}
