/*
Package cli provides helpers shared by the vllm-gateway commands.

Output Formatting:

Command results can be printed as aligned text, JSON or YAML. Results that
implement Describer control their text form:

	format, err := cli.ParseOutputFormat(flags.format)
	if err != nil {
		return err
	}
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, report); err != nil {
		return err
	}

Progress Reporting:

Paged exports report progress on stderr so stdout stays machine readable:

	progress := cli.NewProgressReporter(os.Stderr, "Exporting")
	progress.Start(total)
	for page := range pages {
		progress.Add(int64(len(page)))
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors:

ConfigError and CommandError classify command failures; ExitCode maps them
to the process exit status.
*/
package cli
