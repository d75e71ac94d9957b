package switchctl

import "fmt"

// Every operation maps to exactly one command line and one response
// shape. Success for OK-marker commands is detected by substring: the
// switch has no machine-readable envelope at this integration level, so
// the marker per command is explicit configuration, not inline control
// flow.

type responseShape int

const (
	shapeOKMarker responseShape = iota
	shapeCSVTable
	shapeColumnarTable
	shapeKeyValueLines
	shapeRaw
)

type controlCommand struct {
	line     string
	okMarker string
	shape    responseShape
}

var (
	cmdReloadXML = controlCommand{line: "api reloadxml", okMarker: "+OK [Success]", shape: shapeOKMarker}
	cmdReloadACL = controlCommand{line: "api reloadacl", okMarker: "+OK acl reloaded", shape: shapeOKMarker}
	cmdShutdown  = controlCommand{line: "api shutdown", okMarker: "+OK", shape: shapeOKMarker}

	cmdShowRegistrations = controlCommand{line: "api show registrations", shape: shapeCSVTable}
	cmdSofiaStatus       = controlCommand{line: "api sofia status", shape: shapeColumnarTable}
	cmdStatus            = controlCommand{line: "api status", shape: shapeKeyValueLines}
	cmdEventsAll         = controlCommand{line: "event json ALL", shape: shapeRaw}
)

// originateCommand builds the fire-and-forget dial command. The source
// extension becomes the caller ID, the destination is addressed as a
// registered user in the default XML dialplan.
func originateCommand(src, dst string) string {
	return fmt.Sprintf("api originate {origination_caller_id_number=%s}user/%s %s default XML", src, dst, src)
}
