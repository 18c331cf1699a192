package main

import "github.com/astronomer/airflow-dbcleanup-plugin/cmd"

func main() {
	cmd.Execute()
}
