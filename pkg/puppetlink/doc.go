// Package puppetlink runs and talks to out-of-process QML puppets.
//
// A Host starts one worker process per role (editor, render, preview by
// default), accepts a local socket connection from each, and exposes a
// typed [ServerProxy] for sending scene commands. Commands coming back from
// the workers are delivered to a [Client].
//
// # Basic Usage
//
//	cfg := puppetlink.DefaultConfig()
//	cfg.PuppetPath = "/opt/qt/bin/qml2puppet"
//	cfg.WorkingDir = "/path/to/project"
//
//	host, err := puppetlink.New(cfg, puppetlink.WithClient(myClient))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := host.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer host.Stop()
//
//	_ = host.Proxy().CreateScene(puppetlink.CreateScene{FileURL: "file:///path/to/main.qml"})
//
// # Crashes
//
// When any worker crashes or stops answering, all workers are torn down
// together. With RestartAttempts > 0 the host sets them up again after a
// jittered exponential backoff. Crashes are reported to the handler given
// with [WithCrashHandler] and to the [EventHandler].
//
// # Plugins
//
// Plugins are initialized in registration order when the host starts and
// shut down in reverse order when it stops. See plugins/configwatcher for
// hot reloading of the configuration file.
package puppetlink
