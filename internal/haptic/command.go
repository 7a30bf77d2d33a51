package haptic

// Command packs an optional duty override and a timeout into one integer:
//
//	bits 0..15  timeout in milliseconds
//	bits 16..   duty override in percent (0 = use the default duty)
//
// The packing is plain shift arithmetic on an int32. Duty overrides that do
// not fit above the timeout field are not detected.
type Command int32

// NoDutyOverride asks the controller to use its current default duty.
const NoDutyOverride = 0

const timeoutMask = 0xFFFF

// Encode packs duty and timeoutMs into a Command. timeoutMs is masked to 16 bits.
func Encode(duty, timeoutMs int) Command {
	return Command(int32(duty)<<16 | int32(timeoutMs&timeoutMask))
}

// Decode splits c into its raw duty override and timeout. The duty is returned
// as-is; normalization against the default duty happens in the controller.
func Decode(c Command) (duty, timeoutMs int) {
	return int(c >> 16), int(c & timeoutMask)
}
