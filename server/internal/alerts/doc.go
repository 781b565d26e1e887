// Package alerts evaluates threshold rules against analysed production
// reports and delivers webhook notifications to Slack, Teams or generic
// HTTP targets when a rule fires or resolves.
//
// Every alert carries the report it was raised on (Alert.ReportID) and that
// report's headline figures (Alert.Report). A resolved alert describes the
// report that cleared it.
package alerts
