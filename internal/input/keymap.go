package input

// scanKey is a remote keyboard scan code plus its extended flag.
type scanKey struct {
	code     uint8
	extended bool
}

// Host virtual key codes for the modifier keys.
const (
	vkCommand uint16 = 0x37
	vkShift   uint16 = 0x38
	vkOption  uint16 = 0x3A
	vkControl uint16 = 0x3B
)

// droppedKeys are scan codes with no host equivalent: PrintScreen,
// ScrollLock, Break. Translation rejects them outright.
var droppedKeys = map[scanKey]bool{
	{55, true}:  true,
	{70, false}: true,
	{69, false}: true,
}

// keymap is the fixed scan-code table: remote scan code + extended flag to
// host virtual key.
var keymap = map[scanKey]uint16{
	// Backspace, Return, Tab, Escape
	{14, false}: 0x33,
	{28, false}: 0x24,
	{15, false}: 0x30,
	{1, false}:  0x35,
	// qwertyuiop
	{16, false}: 0x0C,
	{17, false}: 0x0D,
	{18, false}: 0x0E,
	{19, false}: 0x0F,
	{20, false}: 0x11,
	{21, false}: 0x10,
	{22, false}: 0x20,
	{23, false}: 0x22,
	{24, false}: 0x1F,
	{25, false}: 0x23,
	// asdfghjkl;
	{30, false}: 0x00,
	{31, false}: 0x01,
	{32, false}: 0x02,
	{33, false}: 0x03,
	{34, false}: 0x05,
	{35, false}: 0x04,
	{36, false}: 0x26,
	{37, false}: 0x28,
	{38, false}: 0x25,
	{39, false}: 0x29,
	// zxcvbnm
	{44, false}: 0x06,
	{45, false}: 0x07,
	{46, false}: 0x08,
	{47, false}: 0x09,
	{48, false}: 0x0B,
	{49, false}: 0x2D,
	{50, false}: 0x2E,
	// 1..0
	{2, false}:  0x12,
	{3, false}:  0x13,
	{4, false}:  0x14,
	{5, false}:  0x15,
	{6, false}:  0x16,
	{7, false}:  0x17,
	{8, false}:  0x18,
	{9, false}:  0x19,
	{10, false}: 0x1A,
	{11, false}: 0x1B,
	// F1..F12
	{59, false}: 0x7A,
	{60, false}: 0x78,
	{61, false}: 0x63,
	{62, false}: 0x76,
	{63, false}: 0x60,
	{64, false}: 0x61,
	{65, false}: 0x62,
	{66, false}: 0x64,
	{67, false}: 0x65,
	{68, false}: 0x6D,
	{87, false}: 0x67,
	{88, false}: 0x6F,
	// Arrows (left, up, down, right)
	{75, true}: 0x7B,
	{72, true}: 0x7E,
	{80, true}: 0x7D,
	{77, true}: 0x7C,
	// Forward delete, Home, End, PageUp, PageDown
	{83, true}: 0x75,
	{71, true}: 0x73,
	{79, true}: 0x77,
	{73, true}: 0x74,
	{81, true}: 0x79,
}
