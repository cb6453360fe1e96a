package cronjob

import (
	"testing"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/samber/lo"
	"gorm.io/datatypes"

	"github.com/raids-lab/ptms/dao/model"
	"github.com/raids-lab/ptms/pkg/reminder"
)

func TestCronJob(t *testing.T) {
	t.Run("newCronJobFunc", func(t *testing.T) {
		manager := NewCronJobManager(nil, nil)
		PatchConvey("newCronJobFunc", t, func() {
			jobName := reminder.DAILY_REMINDER_JOB
			jobConfig := datatypes.JSON(`{"reminderDays": [7, 3, 1], "escalationDays": 5}`)
			jobFunc, err := manager.newCronJobFunc(jobName, model.CronJobTypeNotifyFunc, jobConfig)
			So(err, ShouldBeNil)
			So(jobFunc, ShouldNotBeNil)

			jobName = reminder.NOTIFICATION_BATCH_SEND_JOB
			jobConfig = datatypes.JSON(`{}`)
			jobFunc, err = manager.newCronJobFunc(jobName, model.CronJobTypeNotifyFunc, jobConfig)
			So(err, ShouldBeNil)
			So(jobFunc, ShouldNotBeNil)

			jobName = "unknown"
			jobConfig = datatypes.JSON(`{"unknown": "unknown"}`)
			jobFunc, err = manager.newCronJobFunc(jobName, model.CronJobTypeNotifyFunc, jobConfig)
			So(err, ShouldNotBeNil)
			So(jobFunc, ShouldBeNil)

			jobFunc, err = manager.newCronJobFunc(reminder.DAILY_REMINDER_JOB, model.CronJobType("shell"), nil)
			So(err, ShouldNotBeNil)
			So(jobFunc, ShouldBeNil)
		})
	})

	t.Run("prepareUpdateConfig", func(t *testing.T) {
		PatchConvey("prepareUpdateConfig", t, func() {
			manager := NewCronJobManager(nil, nil)
			cur := &model.CronJobConfig{
				Name:    "test",
				Type:    model.CronJobTypeNotifyFunc,
				Spec:    "0 0 * * *",
				Suspend: lo.ToPtr(false),
				Config:  datatypes.JSON(`{"test": "test"}`),
			}
			update := manager.prepareUpdateConfig(
				cur,
				lo.ToPtr(model.CronJobTypeNotifyFunc),
				lo.ToPtr("1 1 * * *"),
				lo.ToPtr(true),
				lo.ToPtr(`{"test": "test"}`),
			)
			So(update, ShouldNotBeNil)
			So(update.Name, ShouldEqual, "test")
			So(update.Type, ShouldEqual, model.CronJobTypeNotifyFunc)
			So(update.Spec, ShouldEqual, "1 1 * * *")
			So(*update.Suspend, ShouldEqual, true)
			So(update.Config, ShouldEqual, datatypes.JSON(`{"test": "test"}`))

			update = manager.prepareUpdateConfig(cur, nil, lo.ToPtr(""), nil, nil)
			So(update.Spec, ShouldEqual, "0 0 * * *")
			So(*update.Suspend, ShouldEqual, false)
		})
	})

	t.Run("jobNeedsUpdate", func(t *testing.T) {
		PatchConvey("jobNeedsUpdate", t, func() {
			manager := NewCronJobManager(nil, nil)
			cur := &model.CronJobConfig{Type: model.CronJobTypeNotifyFunc, Spec: "0 7 * * *", Config: datatypes.JSON(`{}`)}
			So(manager.jobNeedsUpdate(cur, &model.CronJobConfig{Type: cur.Type, Spec: cur.Spec, Config: cur.Config}), ShouldBeFalse)
			So(manager.jobNeedsUpdate(cur, &model.CronJobConfig{Type: cur.Type, Spec: "0 8 * * *"}), ShouldBeTrue)
			So(manager.jobNeedsUpdate(cur, &model.CronJobConfig{Type: cur.Type, Spec: cur.Spec, Config: datatypes.JSON(`{"a":1}`)}), ShouldBeTrue)
		})
	})
}
