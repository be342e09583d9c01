package curl

const (
	cmdCurl = "curl"

	optHeader     = "-H"
	optDataBinary = "--data-binary"
	optCompressed = "--compressed"
)
