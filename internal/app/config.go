package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/Altius/stampipes/programs/readtools/internal/barcode"
	"github.com/Altius/stampipes/programs/readtools/internal/decode"
	"github.com/Altius/stampipes/programs/readtools/internal/errkind"
)

// decoderOptions are the demultiplexer settings shared by the flags and
// the JSON --configFile.
type decoderOptions struct {
	BarcodeFile       string `json:"barcodeFile"`
	MaximumMismatches []int  `json:"maximumMismatches"`
	MinimumDistance   []int  `json:"minimumDistance"`
	MaximumN          *int   `json:"maximumN"`
	NNoMismatch       bool   `json:"nNoMismatch"`
	Split             bool   `json:"split"`
	RunName           string `json:"runName"`

	maximumN   int
	configFile string
}

func (o *decoderOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.configFile, "configFile", "", "JSON `file` with defaults for the options below")
	fs.StringVar(&o.BarcodeFile, "barcodeFile", "", "barcode dictionary `file`: sample library barcode...")
	fs.IntSliceVar(&o.MaximumMismatches, "maximumMismatches", nil, "maximum mismatches, once or once per barcode (default 0)")
	fs.IntSliceVar(&o.MinimumDistance, "minimumDistance", nil, "minimum distance to the second best barcode, once or once per barcode (default 1)")
	fs.IntVar(&o.maximumN, "maximumN", -1, "maximum Ns in a barcode (default no limit)")
	fs.BoolVar(&o.NNoMismatch, "nNoMismatch", false, "do not count Ns as mismatches")
	fs.BoolVar(&o.Split, "split", false, "write one output per sample")
	fs.StringVar(&o.RunName, "runName", "", "prefix of the read group IDs")
}

// readConfigFile decodes a JSON decoderOptions document.
func readConfigFile(filename string) (*decoderOptions, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errkind.Badf("config file: %v", err)
	}
	c := &decoderOptions{}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errkind.Badf("config file %s: %v", filename, err)
	}
	return c, nil
}

// resolve fills options left unset on the command line from the config
// file. Flags always win.
func (o *decoderOptions) resolve(fs *pflag.FlagSet) error {
	if fs.Changed("maximumN") {
		if o.maximumN < 0 {
			return errkind.Badf("--maximumN must be >= 0, got %d", o.maximumN)
		}
		n := o.maximumN
		o.MaximumN = &n
	}
	if o.configFile == "" {
		return nil
	}
	c, err := readConfigFile(o.configFile)
	if err != nil {
		return err
	}
	if !fs.Changed("barcodeFile") {
		o.BarcodeFile = c.BarcodeFile
	}
	if !fs.Changed("maximumMismatches") {
		o.MaximumMismatches = c.MaximumMismatches
	}
	if !fs.Changed("minimumDistance") {
		o.MinimumDistance = c.MinimumDistance
	}
	if !fs.Changed("maximumN") {
		o.MaximumN = c.MaximumN
	}
	if !fs.Changed("nNoMismatch") {
		o.NNoMismatch = c.NNoMismatch
	}
	if !fs.Changed("split") {
		o.Split = c.Split
	}
	if !fs.Changed("runName") {
		o.RunName = c.RunName
	}
	return nil
}

// decoder loads the dictionary and builds the decoder.
func (o *decoderOptions) decoder() (*decode.Decoder, error) {
	if o.BarcodeFile == "" {
		return nil, errkind.Badf("--barcodeFile is required")
	}
	dict, err := barcode.ReadDictionaryFile(o.BarcodeFile, o.RunName)
	if err != nil {
		return nil, err
	}
	n := dict.NumberOfBarcodes()
	cfg := decode.Config{MaxN: decode.NoLimit, CountNAsMismatch: !o.NNoMismatch}
	if cfg.MaxMismatches, err = decode.Broadcast("maximumMismatches", o.MaximumMismatches, n, 0); err != nil {
		return nil, err
	}
	if cfg.MinDistance, err = decode.Broadcast("minimumDistance", o.MinimumDistance, n, 1); err != nil {
		return nil, err
	}
	if o.MaximumN != nil {
		cfg.MaxN = *o.MaximumN
	}
	return decode.New(dict, cfg)
}

func (o *decoderOptions) String() string {
	maxN := "none"
	if o.MaximumN != nil {
		maxN = fmt.Sprint(*o.MaximumN)
	}
	return fmt.Sprintf("barcodes %s, maximum mismatches %v, minimum distance %v, maximum N %s, N as mismatch %t",
		o.BarcodeFile, o.MaximumMismatches, o.MinimumDistance, maxN, !o.NNoMismatch)
}
