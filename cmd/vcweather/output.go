package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/lox/vcweather/internal/store"
	"github.com/lox/vcweather/pkg/weather"
)

func printResult(w io.Writer, client *weather.Client, asJSON bool) error {
	result, ok := client.Result()
	if !ok {
		return fmt.Errorf("no result")
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(w, "%s (%s, %s)\n",
		orDash(result.ResolvedAddress), orDash(result.Timezone), formatCoords(result.Latitude, result.Longitude))
	if result.QueryCost.Valid {
		fmt.Fprintf(w, "query cost: %d\n", result.QueryCost.Int64)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tMIN\tMAX\tPRECIP\tPROB\tWIND\tCONDITIONS\tHOURS\tEVENTS")
	for _, d := range result.Days {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			d.Date.Format(weather.DateLayout),
			formatFloat(d.TempMin), formatFloat(d.TempMax),
			formatFloat(d.Precip), formatFloat(d.PrecipProb),
			formatFloat(d.WindSpeed), orDash(d.Conditions),
			len(d.Hours), len(d.Events))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(result.Stations) > 0 {
		fmt.Fprintf(w, "\nstations: %s\n", strings.Join(stationNames(result.Stations), ", "))
	}
	return nil
}

func printRuns(w io.Writer, runs []store.FetchRun) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tKIND\tLOCATION\tSTATUS\tDAYS\tRESULT")
	for _, r := range runs {
		result := "ok"
		if !r.Success {
			result = "failed: " + r.ErrorMessage.String
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Kind, r.Location,
			formatInt(r.HTTPStatus), formatInt(r.DaysStored), result)
	}
	return tw.Flush()
}

func printArchivedDays(w io.Writer, days []store.ArchivedDay) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tMIN\tMAX\tPRECIP\tTYPE\tCONDITIONS\tHOURS\tEVENTS\tFLAGS")
	for _, d := range days {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			d.Date, formatFloat(d.TempMin), formatFloat(d.TempMax), formatFloat(d.Precip),
			formatList(d.PrecipType), orDash(d.Conditions), d.HourCount, d.EventCount,
			orDash(d.QualityFlags))
	}
	return tw.Flush()
}

func formatFloat(v sql.NullFloat64) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.Float64, 'f', -1, 64)
}

func formatInt(v sql.NullInt64) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatInt(v.Int64, 10)
}

func formatList(v weather.NullStrings) string {
	if !v.Valid || len(v.Strings) == 0 {
		return "-"
	}
	return strings.Join(v.Strings, ",")
}

func formatCoords(lat, lon sql.NullFloat64) string {
	if !lat.Valid || !lon.Valid {
		return "-"
	}
	return formatFloat(lat) + "," + formatFloat(lon)
}

func orDash(v sql.NullString) string {
	if !v.Valid || v.String == "" {
		return "-"
	}
	return v.String
}

func stationNames(stations map[string]weather.Station) []string {
	names := make([]string, 0, len(stations))
	for id, st := range stations {
		if st.Name.Valid && st.Name.String != id {
			names = append(names, fmt.Sprintf("%s (%s)", id, st.Name.String))
			continue
		}
		names = append(names, id)
	}
	slices.Sort(names)
	return names
}
