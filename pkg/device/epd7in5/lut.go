package epd7in5

// Waveform tables, 7 groups of 6 bytes each. Groups 4 to 7 are unused.
var (
	lutVcom = [42]byte{
		0x00, 0x0F, 0x0F, 0x00, 0x00, 0x01,
		0x00, 0x0F, 0x01, 0x0F, 0x01, 0x02,
		0x00, 0x0F, 0x0F, 0x00, 0x00, 0x01,
	}

	lutWW = [42]byte{
		0x10, 0x0F, 0x0F, 0x00, 0x00, 0x01,
		0x84, 0x0F, 0x01, 0x0F, 0x01, 0x02,
		0x20, 0x0F, 0x0F, 0x00, 0x00, 0x01,
	}

	lutBW = lutWW

	lutWB = [42]byte{
		0x80, 0x0F, 0x0F, 0x00, 0x00, 0x01,
		0x84, 0x0F, 0x01, 0x0F, 0x01, 0x02,
		0x40, 0x0F, 0x0F, 0x00, 0x00, 0x01,
	}

	lutBB = lutWB
)
