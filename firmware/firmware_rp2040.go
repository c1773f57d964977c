//go:build rp2040 || rp2350

package firmware

import _ "embed"

// The vendor blobs are not redistributed with the source. Copy
// 43439A0.bin and 43439A0_clm.bin into this directory before building for
// the board.

//go:embed 43439A0.bin
var fw []byte

//go:embed 43439A0_clm.bin
var clm []byte

// Images returns the embedded firmware and CLM blobs.
func Images() (firmware, clmBlob []byte) { return fw, clm }
