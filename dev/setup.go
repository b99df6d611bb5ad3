package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"courseplanner-backend/internal/store/sqlite"
)

const stateDir = "dev/.state"

func cmd(name string, args ...string) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	fullCmd := name
	for _, a := range args {
		fullCmd += " "
		fullCmd += a
	}

	fmt.Printf("$ %s\n", fullCmd)
	err := cmd.Run()
	if err != nil {
		os.Exit(1)
	}
}

func CreateLocalStack() error {
	err := os.Chdir("dev/local_stack")
	if err != nil {
		return err
	}
	cmd("docker", "compose", "up", "-d")
	return os.Chdir("../..")
}

func CreateEmptyStore() error {
	path := filepath.Join(stateDir, "courseplanner.db")
	_, err := os.Stat(path)
	if err == nil {
		fmt.Println("database already created at", path)
		return nil
	}

	fmt.Println("creating database at", path)
	db, err := sqlite.Open(sqlite.Config{File: path})
	if err != nil {
		return err
	}
	return db.Close()
}

const devConfig = `{
  timezone: "America/Los_Angeles",
  schedule: "0 3 * * *",
  // empty means every subject offered by the search form
  subjects: ["CSE", "MATH"],
  store: {
    driver: "sqlite",
    sqlite: { file: "dev/.state/courseplanner.db" },
    mongo: { uri: "mongodb://localhost:27017", database: "courseplanner" },
  },
  browser: {
    navigation_timeout: 45,
    idle_grace: 5,
  },
  ratings: {
    requests_per_second: 2,
    concurrency: 4,
  },
  smtp: {
    server: "localhost",
    port: 1025,
    email_address: "ingest@localhost",
    password: "default",
    recipients: ["dev@localhost"],
  },
}
`

const devTelemetry = `{
  otlp: {
    traces: { http_endpoint: "http://localhost:4318/v1/traces" },
    metrics: { http_endpoint: "http://localhost:4318/v1/metrics" },
  },
}
`

func writeIfMissing(path, contents string) error {
	_, err := os.Stat(path)
	if err == nil {
		fmt.Println("config already exists at", path)
		return nil
	}
	fmt.Println("writing config to", path)
	return os.WriteFile(path, []byte(contents), 0644)
}

func WriteDefaultConfigs() error {
	err := writeIfMissing("config.json5", devConfig)
	if err != nil {
		return err
	}
	return writeIfMissing("telemetry.json5", devTelemetry)
}

func PrintConfigLocations() {
	slog.Info("put secrets and machine specific settings in config.local.json5, it is merged over config.json5.")
}
