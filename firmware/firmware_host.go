//go:build !rp2040 && !rp2350

package firmware

// Host image sizes. The real blobs are about 220 KiB and 1 KiB.
const (
	HostFirmwareSize = 4096
	HostCLMSize      = 984
)

var (
	fw  = Synthetic(HostFirmwareSize, 0xA0)
	clm = Synthetic(HostCLMSize, 0xC1)
)

// Images returns synthetic firmware and CLM images.
func Images() (firmware, clmBlob []byte) { return fw, clm }
