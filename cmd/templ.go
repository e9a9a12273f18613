package cmd

const HELP_TEMPL = `Usage: {{if .UsageText}}{{.UsageText}}{{else}}{{.HelpName}} {{if .Commands}} command [command options]{{end}} {{if .ArgsUsage}}{{.ArgsUsage}}{{else}}[arguments...]{{end}}{{end}}
{{.Description}}{{if .VisibleCommands}}
Commands:{{range .VisibleCommands}}
{{"\t"}}{{index .Names 0}}{{"\t:\t"}}{{.Usage}}{{end}}{{end}}

Use "{{.HelpName}} help <command>" for more information about any command.

`

const CMD_HELP_TEMPL = `{{if .Description}}{{.Description}}{{else}}{{.HelpName}} - {{.Usage}}

{{end}}Usage:
        {{.HelpName}} {{if .UsageText}}{{.UsageText}}{{else}}[arguments...]{{end}}{{if .VisibleFlags}}

Supported Flags:{{range .VisibleFlags}}
  {{.}}{{end}}{{end}}

`

const DESCRIPTION = `
autobright dims and brightens your screens on a daily schedule. Each schedule
entry sets the hardware brightness of the display and the level of a black
software overlay that can dim further than the panel allows.
`

const RunDescription = `Starts the daemon in the foreground. If a daemon is already running it is
asked to come to the front and this command exits.

Use --dry-run to keep the hardware brightness untouched.
`

const BrightnessDescription = `Without a percent, prints the current hardware brightness. With a percent
(0-100), sets it; --duration ramps smoothly instead of jumping.
`

const OverlayDescription = `Sets the overlay level. 100 turns the overlay off, lower values dim the
screen down to 30% perceived brightness.
`

const ScheduleDescription = `Schedule entries fire once a day at their time of day. At most one entry
may exist per time; times are HH:MM or HH:MM:SS.
`
